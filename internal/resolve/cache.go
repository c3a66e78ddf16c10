// v1
// internal/resolve/cache.go
package resolve

import (
	"sync"
	"time"
)

// Observer receives cache hit/miss notifications so the metrics layer can
// count them without the cache depending on it.
type Observer interface {
	CacheHit()
	CacheMiss()
}

type entry[T any] struct {
	val T
	exp time.Time
	set time.Time
}

// Cache is a TTL keyed cache. Expired entries stay readable through
// GetStale until overwritten, which backs the stale-is-better-than-none
// resolver policy.
type Cache[T any] struct {
	mu  sync.RWMutex
	m   map[string]entry[T]
	ttl time.Duration
	obs Observer
}

func NewCache[T any](ttl time.Duration, obs Observer) *Cache[T] {
	return &Cache[T]{m: make(map[string]entry[T]), ttl: ttl, obs: obs}
}

// Get returns the cached value when present and not expired.
func (c *Cache[T]) Get(key string) (T, bool) {
	var zero T
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(e.exp) {
		if c.obs != nil {
			c.obs.CacheMiss()
		}
		return zero, false
	}
	if c.obs != nil {
		c.obs.CacheHit()
	}
	return e.val, true
}

// GetStale returns the cached value regardless of expiry, along with the
// time it was stored. Does not notify the observer.
func (c *Cache[T]) GetStale(key string) (T, time.Time, bool) {
	var zero T
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return zero, time.Time{}, false
	}
	return e.val, e.set, true
}

func (c *Cache[T]) Set(key string, v T) {
	now := time.Now()
	c.mu.Lock()
	c.m[key] = entry[T]{val: v, exp: now.Add(c.ttl), set: now}
	c.mu.Unlock()
}
