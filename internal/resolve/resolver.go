// v1
// internal/resolve/resolver.go
package resolve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"focusquality/engine/internal/core"
)

// ErrExhausted is returned when every ranked backend failed and no
// fallback (or stale entry, when allowed) could supply a value. The caller
// must leave the aggregator slot untouched.
var ErrExhausted = errors.New("all backends exhausted")

// Backend fetches one scalar value for a signal kind. Implementations may
// fail, time out, or return out-of-range values; the resolver handles all
// three.
type Backend interface {
	// Name identifies the backend in logs and reading provenance.
	Name() string
	// Validate reports whether the backend's configuration is complete
	// enough to attempt a fetch.
	Validate() error
	// Fetch obtains a current value. It must respect ctx cancellation.
	Fetch(ctx context.Context) (float64, error)
}

// Config bounds the resolver's behaviour for one signal kind.
type Config struct {
	TTL          time.Duration // cache validity window
	FetchTimeout time.Duration // per-backend attempt bound
	ValueMin     float64       // inclusive lower bound of plausible values
	ValueMax     float64       // inclusive upper bound of plausible values
	AllowStale   bool          // return an expired cache entry before giving up
}

// Resolver obtains a current value for one signal kind by trying ranked
// backends in order, caching the last success with provenance. Rank order
// is fixed at construction; traversal always starts from rank 0.
type Resolver struct {
	kind     core.SignalKind
	backends []Backend
	fallback Backend
	cfg      Config
	cache    *Cache[cachedValue]
	log      *slog.Logger
}

type cachedValue struct {
	value  float64
	source string
}

const cacheKey = "latest"

// New builds a resolver. fallback may be nil; when set it must never fail
// (a simulated generator) and is consulted only after every ranked backend
// has been tried. obs may be nil.
func New(kind core.SignalKind, backends []Backend, fallback Backend, cfg Config, log *slog.Logger, obs Observer) *Resolver {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	if cfg.ValueMax <= cfg.ValueMin {
		cfg.ValueMin = math.Inf(-1)
		cfg.ValueMax = math.Inf(1)
	}
	return &Resolver{
		kind:     kind,
		backends: backends,
		fallback: fallback,
		cfg:      cfg,
		cache:    NewCache[cachedValue](cfg.TTL, obs),
		log:      log.With(slog.String("component", "resolver"), slog.String("kind", kind.String())),
	}
}

// Resolve returns the current reading for the resolver's kind.
//
// A fresh cache entry short-circuits everything: no backend is called.
// Otherwise backends are tried strictly in rank order and the first valid
// result is cached and returned. When all ranked backends fail, the
// fallback (if configured) supplies the value; failing that, a stale cache
// entry is returned when the policy allows it. Only then does the resolver
// report ErrExhausted.
func (r *Resolver) Resolve(ctx context.Context) (core.Reading, error) {
	if v, ok := r.cache.Get(cacheKey); ok {
		r.log.Info("cache_hit", slog.Float64("value", v.value), slog.String("source", v.source))
		return r.reading(v.value, v.source), nil
	}

	for _, b := range r.backends {
		if err := b.Validate(); err != nil {
			r.log.Warn("backend_skipped", slog.String("backend", b.Name()), slog.String("reason", err.Error()))
			continue
		}
		value, err := r.attempt(ctx, b)
		if err != nil {
			r.log.Warn("backend_failed", slog.String("backend", b.Name()), slog.String("error", err.Error()))
			continue
		}
		r.cache.Set(cacheKey, cachedValue{value: value, source: b.Name()})
		r.log.Info("backend_success", slog.String("backend", b.Name()), slog.Float64("value", value))
		return r.reading(value, b.Name()), nil
	}

	if r.fallback != nil {
		value, err := r.attempt(ctx, r.fallback)
		if err == nil {
			r.cache.Set(cacheKey, cachedValue{value: value, source: r.fallback.Name()})
			r.log.Info("fallback_used", slog.String("backend", r.fallback.Name()), slog.Float64("value", value))
			return r.reading(value, r.fallback.Name()), nil
		}
		r.log.Error("fallback_failed", slog.String("backend", r.fallback.Name()), slog.String("error", err.Error()))
	}

	if r.cfg.AllowStale {
		if v, at, ok := r.cache.GetStale(cacheKey); ok {
			r.log.Warn("stale_value_used",
				slog.String("source", v.source),
				slog.String("age", time.Since(at).String()),
			)
			return r.reading(v.value, v.source), nil
		}
	}

	r.log.Error("resolve_exhausted", slog.Int("backends", len(r.backends)))
	return core.Reading{}, ErrExhausted
}

func (r *Resolver) attempt(ctx context.Context, b Backend) (float64, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, r.cfg.FetchTimeout)
	defer cancel()

	value, err := b.Fetch(fetchCtx)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("non-finite value %v", value)
	}
	if value < r.cfg.ValueMin || value > r.cfg.ValueMax {
		return 0, fmt.Errorf("value %v outside plausible range [%v,%v]", value, r.cfg.ValueMin, r.cfg.ValueMax)
	}
	return value, nil
}

func (r *Resolver) reading(value float64, source string) core.Reading {
	return core.Reading{Kind: r.kind, Value: value, Source: source, ObservedAt: time.Now().UTC()}
}
