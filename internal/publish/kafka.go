// v1
// internal/publish/kafka.go
package publish

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"focusquality/engine/internal/breaker"
	"focusquality/engine/internal/core"
)

// kafkaMessageWriter mirrors the subset of kafka.Writer used by the sink.
type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes composite scores to a topic, guarded by a circuit
// breaker so a dead broker degrades to fast-fails instead of blocking the
// broadcast cadence.
type Kafka struct {
	w   kafkaMessageWriter
	brk *breaker.Breaker
	log *slog.Logger
}

// NewKafka builds the sink. brk may be nil to publish unguarded.
func NewKafka(brokers []string, topic string, brk *breaker.Breaker, log *slog.Logger) *Kafka {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
	return newKafka(w, brk, log)
}

func newKafka(w kafkaMessageWriter, brk *breaker.Breaker, log *slog.Logger) *Kafka {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Kafka{w: w, brk: brk, log: log.With(slog.String("component", "kafka-sink"))}
}

func (k *Kafka) Name() string { return "kafka" }

func (k *Kafka) Publish(ctx context.Context, score core.CompositeScore) error {
	b, err := json.Marshal(score)
	if err != nil {
		k.log.Error("marshal_failed", slog.String("error", err.Error()))
		return err
	}
	msg := kafka.Message{Key: []byte(score.ID), Value: b, Time: score.ObservedAt}

	write := func(ctx context.Context) error { return k.w.WriteMessages(ctx, msg) }
	if k.brk != nil {
		err = k.brk.Execute(ctx, write)
	} else {
		err = write(ctx)
	}
	if err != nil {
		return err
	}
	k.log.Info("score_published", slog.String("id", score.ID), slog.Float64("fqs", score.Score))
	return nil
}

// Close shuts down the underlying writer.
func (k *Kafka) Close() error {
	return k.w.Close()
}
