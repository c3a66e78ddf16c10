// v1
// internal/core/models.go
package core

import (
	"fmt"
	"time"
)

// SignalKind identifies one of the three scalar signals combined into the
// focus quality score. The set is closed: each kind maps to exactly one
// weight and one normalization rule in the scorer.
type SignalKind int

const (
	// Physiological is the heart-rate variability signal (RMSSD, ms).
	Physiological SignalKind = iota
	// InterruptionCount is the recent notification count.
	InterruptionCount
	// Environmental is the ambient noise level (0-10 scale).
	Environmental

	numKinds
)

// Kinds returns all signal kinds in canonical order.
func Kinds() []SignalKind {
	return []SignalKind{Physiological, InterruptionCount, Environmental}
}

func (k SignalKind) String() string {
	switch k {
	case Physiological:
		return "physiological"
	case InterruptionCount:
		return "interruption"
	case Environmental:
		return "environmental"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Valid reports whether k is a member of the closed kind set.
func (k SignalKind) Valid() bool {
	return k >= Physiological && k < numKinds
}

// Reading is one observed value for a signal kind. Immutable once created.
type Reading struct {
	Kind       SignalKind `json:"kind"`
	Value      float64    `json:"value"`
	Source     string     `json:"source"`
	ObservedAt time.Time  `json:"observedAt"`
}

// Slot is one entry of an aggregated snapshot. Present distinguishes an
// empty slot from a legitimate zero reading.
type Slot struct {
	Reading Reading
	Present bool
}

// Snapshot is a per-slot-consistent copy of the aggregated state. The three
// slots may have been written at unrelated times; no cross-slot ordering
// is implied.
type Snapshot struct {
	Slots [3]Slot
}

// Slot returns the entry for the given kind. Unknown kinds yield an absent slot.
func (s Snapshot) Slot(k SignalKind) Slot {
	if !k.Valid() {
		return Slot{}
	}
	return s.Slots[k]
}

// CompositeScore is the published result of one broadcast tick. Superseded,
// never mutated, by the next tick.
type CompositeScore struct {
	ID         string    `json:"id"`
	Score      float64   `json:"fqs"`
	Physio     float64   `json:"hrvRmssd"`
	Interrupt  float64   `json:"notificationCount"`
	Environ    float64   `json:"ambientNoise"`
	ObservedAt time.Time `json:"observedAt"`
}
