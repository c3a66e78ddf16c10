// v1
// internal/breaker/breaker.go
package breaker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
)

// State enumerates the classic circuit breaker states.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned when the breaker fast-fails a call without invoking
// the wrapped operation.
var ErrOpen = errors.New("circuit breaker is open; fast-fail")

// Config holds the breaker tunables.
type Config struct {
	MaxFailures      int           // consecutive failures before opening
	ResetTimeout     time.Duration // wait before probing again
	SuccessesToClose int           // successes in HalfOpen required to close
}

// DefaultConfig mirrors the tunables used for flaky network dependencies:
// open after 5 consecutive failures, probe again after 30 seconds.
func DefaultConfig() Config {
	return Config{MaxFailures: 5, ResetTimeout: 30 * time.Second, SuccessesToClose: 1}
}

// Breaker guards an unreliable operation (backend fetch, Kafka publish)
// with open/half-open/closed transitions. Safe for concurrent use.
type Breaker struct {
	name string
	cfg  Config
	log  *slog.Logger

	mu          sync.Mutex
	state       State
	recentFails int
	halfOpenOKs int
	probing     bool
	openedAt    time.Time
}

// New builds a breaker. A nil logger discards breaker events.
func New(name string, cfg Config, log *slog.Logger) *Breaker {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.MaxFailures < 1 {
		cfg.MaxFailures = DefaultConfig().MaxFailures
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = DefaultConfig().ResetTimeout
	}
	if cfg.SuccessesToClose < 1 {
		cfg.SuccessesToClose = 1
	}
	b := &Breaker{name: name, cfg: cfg, log: log.With(slog.String("breaker", name))}
	b.log.Info("breaker_created",
		slog.Int("maxFailures", cfg.MaxFailures),
		slog.String("resetTimeout", cfg.ResetTimeout.String()),
	)
	return b
}

// Execute runs op under the breaker's protection. While open and inside the
// reset window it returns ErrOpen without calling op; after the window one
// probing call is let through.
func (b *Breaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	b.mu.Lock()
	switch b.state {
	case Open:
		if time.Since(b.openedAt) < b.cfg.ResetTimeout {
			since := time.Since(b.openedAt)
			b.mu.Unlock()
			b.log.Warn("breaker_fast_fail", slog.String("since_open", since.String()))
			return ErrOpen
		}
		b.state = HalfOpen
		b.halfOpenOKs = 0
		b.probing = true
		b.log.Info("breaker_probe_start", slog.Int("previous_failures", b.recentFails))
	case HalfOpen:
		// only one probe in flight at a time
		if b.probing {
			b.mu.Unlock()
			return ErrOpen
		}
		b.probing = true
	}
	b.mu.Unlock()

	err := op(ctx)
	if err != nil {
		b.onFailure(err)
		return err
	}
	b.onSuccess()
	return nil
}

func (b *Breaker) onSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false
	switch b.state {
	case HalfOpen:
		b.halfOpenOKs++
		if b.halfOpenOKs >= b.cfg.SuccessesToClose {
			b.state = Closed
			b.recentFails = 0
			b.log.Info("breaker_closed_after_probe")
		}
	default:
		b.state = Closed
		b.recentFails = 0
	}
}

func (b *Breaker) onFailure(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false
	b.recentFails++
	b.log.Warn("operation_failure", slog.Int("failures", b.recentFails), slog.String("error", err.Error()))
	if b.state == HalfOpen || b.recentFails >= b.cfg.MaxFailures {
		b.state = Open
		b.openedAt = time.Now()
		b.log.Error("breaker_opened", slog.Int("maxFailures", b.cfg.MaxFailures))
	}
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
