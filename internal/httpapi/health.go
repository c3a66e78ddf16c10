// v1
// internal/httpapi/health.go
package httpapi

import "sync"

// HealthState tracks readiness for the HTTP API. Liveness is always true
// while the process runs; readiness toggles once the collectors and the
// broadcast loop are started, and again during shutdown.
type HealthState struct {
	mu    sync.RWMutex
	ready bool
}

func NewHealthState() *HealthState {
	return &HealthState{}
}

// SetReady flips the readiness flag.
func (h *HealthState) SetReady(value bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = value
}

// Ready exposes the current readiness flag.
func (h *HealthState) Ready() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ready
}
