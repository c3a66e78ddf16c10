// v1
// internal/app/app_test.go
package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"focusquality/engine/internal/aggregate"
	"focusquality/engine/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.ListenAddress = "127.0.0.1:0"
	cfg.LogFilePath = filepath.Join(t.TempDir(), "engine.log")
	// keep the score loop idle during the test window so no publish to
	// an absent broker is attempted
	cfg.BroadcastPeriod = time.Hour
	cfg.Sources = map[string][]string{
		"physiological": {"simulated"},
		"interruption":  {"simulated"},
		"environmental": {"simulated"},
	}
	cfg.PollIntervals = map[string]time.Duration{
		"physiological": 10 * time.Millisecond,
		"interruption":  10 * time.Millisecond,
		"environmental": 10 * time.Millisecond,
	}
	return cfg
}

func TestBuildWorkersOnePerKind(t *testing.T) {
	cfg := testConfig(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	workers, err := buildWorkers(cfg, aggregate.New(log), log)
	if err != nil {
		t.Fatalf("buildWorkers: %v", err)
	}
	if len(workers) != 3 {
		t.Fatalf("expected 3 workers, got %d", len(workers))
	}
}

func TestBuildBackendUnknownNameUsesValueParser(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backends = map[string]config.BackendConfig{
		"noise": {URL: "http://localhost:9999/noise", Token: "tok"},
	}
	b, err := buildBackend(2, "noise", cfg)
	if err != nil {
		t.Fatalf("buildBackend: %v", err)
	}
	if b.Name() != "noise" {
		t.Fatalf("expected backend named noise, got %q", b.Name())
	}
	if err := b.Validate(); err != nil {
		t.Fatalf("expected configured backend to validate, got %v", err)
	}
}

func TestRunStartsCollectsAndStops(t *testing.T) {
	app, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	// give the simulated collectors a few poll cycles to populate slots
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap := app.state.Snapshot()
		if snap.Slots[0].Present && snap.Slots[1].Present && snap.Slots[2].Present {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	snap := app.state.Snapshot()
	for i, slot := range snap.Slots {
		if !slot.Present {
			t.Fatalf("slot %d never populated", i)
		}
		if slot.Reading.Source != "simulated" {
			t.Fatalf("slot %d source = %q, want simulated", i, slot.Reading.Source)
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error on cancel: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
