// v1
// internal/backends/simulated.go
package backends

import (
	"context"
	"math/rand"
	"sync"

	"focusquality/engine/internal/core"
)

// Simulated generates plausible values for one signal kind. It never
// fails, which makes it the designated last-resort fallback backend.
type Simulated struct {
	kind core.SignalKind

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulated builds a generator seeded for reproducibility in tests.
func NewSimulated(kind core.SignalKind, seed int64) *Simulated {
	return &Simulated{kind: kind, rng: rand.New(rand.NewSource(seed))}
}

func (s *Simulated) Name() string    { return "simulated" }
func (s *Simulated) Validate() error { return nil }

// Fetch returns a value inside the kind's expected band: HRV around 70
// within 40-100, notifications a small non-negative count, noise around
// the middle of the 0-10 scale.
func (s *Simulated) Fetch(_ context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.kind {
	case core.Physiological:
		return clampRange(70.0+s.rng.Float64()*20.0-10.0, 40.0, 100.0), nil
	case core.InterruptionCount:
		return clampRange(1.0+s.rng.NormFloat64()*0.5, 0.0, 5.0), nil
	case core.Environmental:
		return clampRange(3.0+s.rng.Float64()*4.0-2.0, 0.0, 10.0), nil
	default:
		return 0, nil
	}
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
