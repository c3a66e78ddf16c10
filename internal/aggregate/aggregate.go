// v1
// internal/aggregate/aggregate.go
package aggregate

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"focusquality/engine/internal/core"
)

// slot holds the most recent reading for one signal kind behind its own
// lock. Slots for different kinds never share a lock, so concurrent
// writers for different kinds do not serialize each other.
type slot struct {
	mu      sync.RWMutex
	reading core.Reading
	present bool
}

// SourceStatus describes the lifecycle of one kind's collector as seen by
// the aggregator.
type SourceStatus struct {
	Kind       core.SignalKind `json:"kind"`
	Status     string          `json:"status"` // waiting | active | failed
	Source     string          `json:"source,omitempty"`
	Value      float64         `json:"value,omitempty"`
	LastUpdate *time.Time      `json:"lastUpdate,omitempty"`
}

// State is the shared last-value store: one slot per signal kind, created
// empty at process start and alive for the process lifetime. It is safe
// for concurrent use by the collector goroutines and the broadcast loop.
type State struct {
	slots  [3]slot
	log    *slog.Logger
	mu     sync.RWMutex
	failed [3]bool
}

// New returns an empty aggregated state. The logger may be nil.
func New(log *slog.Logger) *State {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &State{log: log.With(slog.String("component", "aggregate"))}
}

// Update overwrites the slot for the reading's kind. Last write wins;
// readers never observe a partially written reading. Readings for unknown
// kinds are dropped with a log line rather than corrupting a slot.
func (s *State) Update(r core.Reading) {
	if !r.Kind.Valid() {
		s.log.Warn("reading_dropped_unknown_kind", slog.Int("kind", int(r.Kind)))
		return
	}
	sl := &s.slots[r.Kind]
	sl.mu.Lock()
	sl.reading = r
	sl.present = true
	sl.mu.Unlock()

	s.mu.Lock()
	s.failed[r.Kind] = false
	s.mu.Unlock()

	s.log.Info("reading_updated",
		slog.String("kind", r.Kind.String()),
		slog.Float64("value", r.Value),
		slog.String("source", r.Source),
	)
}

// MarkFailed records that a kind's collector has given up (all backends
// exhausted, no fallback). The slot itself is left untouched so the last
// known value keeps contributing to the score.
func (s *State) MarkFailed(k core.SignalKind) {
	if !k.Valid() {
		return
	}
	s.mu.Lock()
	s.failed[k] = true
	s.mu.Unlock()
	s.log.Warn("source_marked_failed", slog.String("kind", k.String()))
}

// Snapshot copies every slot under its own lock. Each slot is internally
// consistent; the snapshot as a whole is not required to be consistent
// across kinds.
func (s *State) Snapshot() core.Snapshot {
	var snap core.Snapshot
	for _, k := range core.Kinds() {
		sl := &s.slots[k]
		sl.mu.RLock()
		snap.Slots[k] = core.Slot{Reading: sl.reading, Present: sl.present}
		sl.mu.RUnlock()
	}
	return snap
}

// Latest returns the current reading for one kind, if any.
func (s *State) Latest(k core.SignalKind) (core.Reading, bool) {
	if !k.Valid() {
		return core.Reading{}, false
	}
	sl := &s.slots[k]
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	return sl.reading, sl.present
}

// Status reports each kind's collector state for the HTTP surface.
func (s *State) Status() []SourceStatus {
	snap := s.Snapshot()
	s.mu.RLock()
	failed := s.failed
	s.mu.RUnlock()

	out := make([]SourceStatus, 0, len(core.Kinds()))
	for _, k := range core.Kinds() {
		st := SourceStatus{Kind: k, Status: "waiting"}
		if sl := snap.Slot(k); sl.Present {
			st.Status = "active"
			st.Source = sl.Reading.Source
			st.Value = sl.Reading.Value
			ts := sl.Reading.ObservedAt
			st.LastUpdate = &ts
		}
		if failed[k] {
			st.Status = "failed"
		}
		out = append(out, st)
	}
	return out
}
