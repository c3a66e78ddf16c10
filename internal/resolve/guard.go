// v1
// internal/resolve/guard.go
package resolve

import (
	"context"

	"focusquality/engine/internal/breaker"
)

// GuardedBackend wraps a backend with a circuit breaker so a repeatedly
// failing provider is fast-failed instead of burning its fetch timeout on
// every resolve. A fast-fail surfaces as an ordinary backend failure and
// the resolver moves on to the next rank.
type GuardedBackend struct {
	inner Backend
	brk   *breaker.Breaker
}

// Guard wraps b. A nil breaker returns b unchanged.
func Guard(b Backend, brk *breaker.Breaker) Backend {
	if brk == nil {
		return b
	}
	return &GuardedBackend{inner: b, brk: brk}
}

func (g *GuardedBackend) Name() string { return g.inner.Name() }

func (g *GuardedBackend) Validate() error { return g.inner.Validate() }

func (g *GuardedBackend) Fetch(ctx context.Context) (float64, error) {
	var value float64
	err := g.brk.Execute(ctx, func(ctx context.Context) error {
		v, ferr := g.inner.Fetch(ctx)
		if ferr != nil {
			return ferr
		}
		value = v
		return nil
	})
	if err != nil {
		return 0, err
	}
	return value, nil
}
