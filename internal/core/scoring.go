// v1
// internal/core/scoring.go
package core

import "math"

// Expected input ranges and fixed weights for the focus quality score.
// HRV contributes 50% (higher is better), notifications 30% and ambient
// noise 20% (both inverted: higher raw values lower the score).
const (
	physioFloor   = 40.0
	physioSpan    = 60.0
	interruptSpan = 5.0
	environSpan   = 10.0

	weightPhysio    = 50.0
	weightInterrupt = 30.0
	weightEnviron   = 20.0
)

// Neutral defaults substituted for signals that have never reported or
// whose aggregated value is non-finite.
const (
	DefaultPhysio    = 70.0
	DefaultInterrupt = 0.0
	DefaultEnviron   = 5.0
)

// ComputeScore maps the three latest signal values to a single focus
// quality score in [0,100]. The function is pure and deterministic.
//
// Out-of-range finite inputs are accepted: their normalized contribution
// simply falls outside 0..1 and the final clamp absorbs it. Behaviour on
// non-finite inputs is unspecified; callers substitute defaults first
// (see Substitute).
func ComputeScore(physio, interrupt, environ float64) float64 {
	normPhysio := (physio - physioFloor) / physioSpan
	normInterrupt := 1 - interrupt/interruptSpan
	normEnviron := 1 - environ/environSpan

	fqs := weightPhysio*normPhysio + weightInterrupt*normInterrupt + weightEnviron*normEnviron
	return clamp(fqs, 0, 100)
}

// Substitute returns the value to feed the scorer for one slot: the slot's
// reading when present and finite, the kind's neutral default otherwise.
// Non-finite aggregated values are treated as absent.
func Substitute(k SignalKind, s Slot) float64 {
	if s.Present && isFinite(s.Reading.Value) {
		return s.Reading.Value
	}
	return DefaultFor(k)
}

// DefaultFor returns the documented neutral default for a signal kind.
func DefaultFor(k SignalKind) float64 {
	switch k {
	case Physiological:
		return DefaultPhysio
	case InterruptionCount:
		return DefaultInterrupt
	case Environmental:
		return DefaultEnviron
	default:
		return 0
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
