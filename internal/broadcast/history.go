// v1
// internal/broadcast/history.go
package broadcast

import (
	"sync"

	"focusquality/engine/internal/core"
)

// History keeps the most recent composite scores in a bounded buffer.
// Safe for concurrent use by the broadcast loop and the HTTP surface.
type History struct {
	mu      sync.RWMutex
	maxSize int
	scores  []core.CompositeScore
}

// NewHistory builds a bounded buffer. Capacities at or below zero are
// promoted to 1000 entries.
func NewHistory(max int) *History {
	if max <= 0 {
		max = 1000
	}
	return &History{maxSize: max}
}

// Append records a score, evicting the oldest entry once the capacity is
// reached. Returns the current buffer length.
func (h *History) Append(s core.CompositeScore) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.scores) >= h.maxSize {
		h.scores = append(h.scores[1:], s)
	} else {
		h.scores = append(h.scores, s)
	}
	return len(h.scores)
}

// Latest returns the most recent score, if any tick has run yet.
func (h *History) Latest() (core.CompositeScore, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.scores) == 0 {
		return core.CompositeScore{}, false
	}
	return h.scores[len(h.scores)-1], true
}

// Snapshot returns a copy of the buffered scores, oldest first. Mutating
// the returned slice does not affect the buffer.
func (h *History) Snapshot() []core.CompositeScore {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.scores) == 0 {
		return nil
	}
	out := make([]core.CompositeScore, len(h.scores))
	copy(out, h.scores)
	return out
}
