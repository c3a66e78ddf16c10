// v1
// internal/broadcast/broadcast.go
package broadcast

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"focusquality/engine/internal/aggregate"
	"focusquality/engine/internal/core"
	"focusquality/engine/internal/metrics"
)

// Publisher hands a computed score to the transport boundary. Delivery is
// at-most-once from the loop's perspective; retries are the transport's
// concern.
type Publisher interface {
	Publish(ctx context.Context, score core.CompositeScore) error
	Name() string
}

// Loop is the only component that ties time to the others: on a fixed
// period it snapshots the aggregated state, substitutes neutral defaults
// for absent slots, computes the composite score, and publishes it.
type Loop struct {
	state      *aggregate.State
	publishers []Publisher
	history    *History
	period     time.Duration
	log        *slog.Logger
}

// NewLoop wires the broadcast loop. Periods at or below zero fall back to
// five seconds.
func NewLoop(state *aggregate.State, history *History, publishers []Publisher, period time.Duration, log *slog.Logger) *Loop {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if period <= 0 {
		period = 5 * time.Second
	}
	return &Loop{
		state:      state,
		publishers: publishers,
		history:    history,
		period:     period,
		log:        log.With(slog.String("component", "broadcast")),
	}
}

// Run ticks until the context is cancelled. Publish failures are logged
// and never change the cadence: there is no retry within a tick.
func (l *Loop) Run(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context must not be nil")
	}
	l.log.Info("broadcast_loop_started", slog.String("period", l.period.String()))

	ticker := time.NewTicker(l.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.log.Info("broadcast_loop_stopped")
			return ctx.Err()
		case <-ticker.C:
			l.Tick(ctx)
		}
	}
}

// Tick performs one read+score+publish cycle. Exported so tests and the
// readiness warmup can drive the loop without a ticker.
func (l *Loop) Tick(ctx context.Context) core.CompositeScore {
	snap := l.state.Snapshot()

	physio := core.Substitute(core.Physiological, snap.Slot(core.Physiological))
	interrupt := core.Substitute(core.InterruptionCount, snap.Slot(core.InterruptionCount))
	environ := core.Substitute(core.Environmental, snap.Slot(core.Environmental))

	score := core.CompositeScore{
		ID:         uuid.New().String(),
		Score:      core.ComputeScore(physio, interrupt, environ),
		Physio:     physio,
		Interrupt:  interrupt,
		Environ:    environ,
		ObservedAt: time.Now().UTC(),
	}

	if l.history != nil {
		l.history.Append(score)
	}
	metrics.IncBroadcastTick()
	metrics.SetFQS(score.Score)

	l.log.Info("score_computed",
		slog.Float64("fqs", score.Score),
		slog.Float64("hrv", physio),
		slog.Float64("notifications", interrupt),
		slog.Float64("noise", environ),
	)

	for _, p := range l.publishers {
		if err := p.Publish(ctx, score); err != nil {
			metrics.IncPublishFailure(p.Name())
			l.log.Warn("publish_failed",
				slog.String("sink", p.Name()),
				slog.String("error", err.Error()),
			)
		}
	}
	return score
}
