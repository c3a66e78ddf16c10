// v1
// internal/collect/collect.go
package collect

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"focusquality/engine/internal/aggregate"
	"focusquality/engine/internal/core"
	"focusquality/engine/internal/metrics"
	"focusquality/engine/internal/resolve"
)

// ValueResolver is the slice of the resolver consumed by a worker.
type ValueResolver interface {
	Resolve(ctx context.Context) (core.Reading, error)
}

// Worker drives one signal kind: resolve on a fixed interval, write the
// result into the aggregated state. Fetches within a kind never overlap
// because the loop is strictly sequential; a successful resolve is
// therefore visible to the aggregator before the next attempt begins.
type Worker struct {
	kind     core.SignalKind
	resolver ValueResolver
	state    *aggregate.State
	interval time.Duration
	log      *slog.Logger
}

// NewWorker wires a collector for one kind. Intervals at or below zero
// fall back to one minute, matching the slowest source's natural cadence.
func NewWorker(kind core.SignalKind, r ValueResolver, state *aggregate.State, interval time.Duration, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Worker{
		kind:     kind,
		resolver: r,
		state:    state,
		interval: interval,
		log:      log.With(slog.String("component", "collector"), slog.String("kind", kind.String())),
	}
}

// Run loops until the context is cancelled. The first resolve happens
// immediately so the aggregator warms up without waiting a full interval.
// Resolve failures leave the slot untouched and never stop the loop.
func (w *Worker) Run(ctx context.Context) {
	w.log.Info("collector_started", slog.String("interval", w.interval.String()))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.collectOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("collector_stopped")
			return
		case <-ticker.C:
			w.collectOnce(ctx)
		}
	}
}

func (w *Worker) collectOnce(ctx context.Context) {
	reading, err := w.resolver.Resolve(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		metrics.IncResolveFailure(w.kind.String())
		if errors.Is(err, resolve.ErrExhausted) {
			// last-known value in the slot stays in effect
			w.state.MarkFailed(w.kind)
			return
		}
		w.log.Warn("collect_failed", slog.String("error", err.Error()))
		return
	}
	w.state.Update(reading)
	metrics.IncReading(w.kind.String())
}
