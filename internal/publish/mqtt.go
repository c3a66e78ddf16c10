// v1
// internal/publish/mqtt.go
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"focusquality/engine/internal/core"
)

// mqttClient mirrors the subset of mqtt.Client used by the sink.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTT publishes composite scores to a broker topic for lightweight
// subscribers (dashboards, desktop widgets).
type MQTT struct {
	client  mqttClient
	topic   string
	timeout time.Duration
	log     *slog.Logger
}

// NewMQTT connects to the broker and returns the sink. Connection failure
// is returned to the caller; the engine treats the MQTT sink as optional.
func NewMQTT(brokerURL, clientID, topic string, log *slog.Logger) (*MQTT, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", brokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", brokerURL, err)
	}
	return newMQTTSink(client, topic, 5*time.Second, log), nil
}

func newMQTTSink(client mqttClient, topic string, timeout time.Duration, log *slog.Logger) *MQTT {
	return &MQTT{
		client:  client,
		topic:   topic,
		timeout: timeout,
		log:     log.With(slog.String("component", "mqtt-sink")),
	}
}

func (m *MQTT) Name() string { return "mqtt" }

func (m *MQTT) Publish(ctx context.Context, score core.CompositeScore) error {
	payload, err := json.Marshal(score)
	if err != nil {
		m.log.Error("marshal_failed", slog.String("error", err.Error()))
		return err
	}
	token := m.client.Publish(m.topic, 0, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(m.timeout):
		return fmt.Errorf("mqtt publish to %s timed out", m.topic)
	}
	if err := token.Error(); err != nil {
		return err
	}
	m.log.Info("score_published", slog.String("id", score.ID), slog.Float64("fqs", score.Score))
	return nil
}

// Close disconnects from the broker.
func (m *MQTT) Close() {
	m.client.Disconnect(250)
}
