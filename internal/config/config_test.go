// v1
// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func loadWithProps(t *testing.T, contents string) (Config, error) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.properties")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write properties: %v", err)
	}
	t.Setenv("ENGINE_PROPERTIES_PATH", path)
	return Load()
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENGINE_PROPERTIES_PATH", filepath.Join(t.TempDir(), "missing.properties"))
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load with missing properties file should succeed: %v", err)
	}
	if cfg.ListenAddress != ":8090" {
		t.Fatalf("unexpected default listen address %q", cfg.ListenAddress)
	}
	if cfg.BroadcastPeriod != 5*time.Second {
		t.Fatalf("unexpected default broadcast period %v", cfg.BroadcastPeriod)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Fatalf("unexpected default cache TTL %v", cfg.CacheTTL)
	}
	if !cfg.SimulatedFallback {
		t.Fatalf("simulated fallback should default on")
	}
	if got := cfg.Sources["physiological"]; len(got) != 2 || got[0] != "fitbit" || got[1] != "oura" {
		t.Fatalf("unexpected default physiological ranking %v", got)
	}
}

func TestLoadProperties(t *testing.T) {
	cfg, err := loadWithProps(t, `
# engine settings
http.listen = :9999
broadcast.period_ms = 2000
cache.ttl_seconds = 60
resolver.allow_stale = true
sources.physiological = oura,fitbit
backend.oura.url = https://api.ouraring.com/v2/sleep
backend.oura.token = secret
poll.physiological_ms = 30000
kafka.brokers = k1:9092, k2:9092
kafka.topic = scores.v2
mqtt.enabled = true
`)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ListenAddress != ":9999" {
		t.Fatalf("listen address not applied: %q", cfg.ListenAddress)
	}
	if cfg.BroadcastPeriod != 2*time.Second {
		t.Fatalf("broadcast period not applied: %v", cfg.BroadcastPeriod)
	}
	if cfg.CacheTTL != time.Minute {
		t.Fatalf("cache TTL not applied: %v", cfg.CacheTTL)
	}
	if !cfg.AllowStale {
		t.Fatalf("allow_stale not applied")
	}
	if got := cfg.Sources["physiological"]; got[0] != "oura" {
		t.Fatalf("ranking order not applied: %v", got)
	}
	if cfg.Backends["oura"].Token != "secret" {
		t.Fatalf("backend token not applied")
	}
	if cfg.PollIntervals["physiological"] != 30*time.Second {
		t.Fatalf("poll interval not applied: %v", cfg.PollIntervals["physiological"])
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("kafka brokers not applied: %v", cfg.KafkaBrokers)
	}
	if cfg.KafkaTopic != "scores.v2" || !cfg.MQTTEnabled {
		t.Fatalf("kafka/mqtt settings not applied")
	}
}

func TestEnvOverridesProperties(t *testing.T) {
	t.Setenv("ENGINE_KAFKA_BROKERS", "env-broker:9092")
	t.Setenv("FITBIT_ACCESS_TOKEN", "env-token")
	cfg, err := loadWithProps(t, "kafka.brokers = file-broker:9092\n")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(cfg.KafkaBrokers) != 1 || cfg.KafkaBrokers[0] != "env-broker:9092" {
		t.Fatalf("env should override properties, got %v", cfg.KafkaBrokers)
	}
	if cfg.Backends["fitbit"].Token != "env-token" {
		t.Fatalf("fitbit token env not applied")
	}
}

func TestInvalidEnvOverrideRejected(t *testing.T) {
	t.Setenv("ENGINE_PROPERTIES_PATH", filepath.Join(t.TempDir(), "missing.properties"))
	t.Setenv("ENGINE_BROADCAST_MS", "not-a-number")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unparsable ENGINE_BROADCAST_MS")
	}

	t.Setenv("ENGINE_BROADCAST_MS", "")
	t.Setenv("ENGINE_CACHE_TTL_SECONDS", "-3")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for negative ENGINE_CACHE_TTL_SECONDS")
	}
}

func TestUnknownPropertyRejected(t *testing.T) {
	if _, err := loadWithProps(t, "no.such.key = 1\n"); err == nil {
		t.Fatalf("expected error for unknown property")
	}
}

func TestInvalidDurationRejected(t *testing.T) {
	if _, err := loadWithProps(t, "broadcast.period_ms = -5\n"); err == nil {
		t.Fatalf("expected error for negative period")
	}
}
