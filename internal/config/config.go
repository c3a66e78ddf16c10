// v1
// internal/config/config.go
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// BackendConfig holds the remote endpoint settings for one named backend.
// An empty URL or token leaves the backend present in the ranking but
// failing its completeness check, which the resolver logs and skips.
type BackendConfig struct {
	URL   string
	Token string
}

// Config captures all runtime settings for the engine. Values layer from
// defaults, then an optional properties file, then environment variables.
type Config struct {
	// ListenAddress defines the TCP address used by the HTTP server.
	ListenAddress string
	// LogFilePath is the path to the service log file.
	LogFilePath string
	// HTTPReadTimeout bounds the time to read incoming requests.
	HTTPReadTimeout time.Duration
	// HTTPWriteTimeout bounds the time to write responses.
	HTTPWriteTimeout time.Duration
	// ShutdownTimeout limits graceful shutdown attempts.
	ShutdownTimeout time.Duration
	// PropertiesPath records the path used to load property values.
	PropertiesPath string

	// BroadcastPeriod is the fixed cadence of the score loop.
	BroadcastPeriod time.Duration
	// HistorySize caps the in-memory window of retained scores.
	HistorySize int

	// CacheTTL bounds backend call frequency per signal kind.
	CacheTTL time.Duration
	// FetchTimeout bounds each backend attempt.
	FetchTimeout time.Duration
	// AllowStale lets an expired cache entry stand in when every backend fails.
	AllowStale bool
	// SimulatedFallback appends an always-succeeding generator as last resort.
	SimulatedFallback bool

	// Sources maps a signal kind name to its ranked backend names.
	Sources map[string][]string
	// Backends maps a backend name to its endpoint settings.
	Backends map[string]BackendConfig
	// PollIntervals maps a signal kind name to its collector cadence.
	PollIntervals map[string]time.Duration

	// KafkaBrokers lists the bootstrap servers for the score topic.
	KafkaBrokers []string
	// KafkaTopic is the topic scores are published to.
	KafkaTopic string

	// MQTTEnabled toggles the optional MQTT sink.
	MQTTEnabled bool
	// MQTTBroker is the broker URL, e.g. tcp://localhost:1883.
	MQTTBroker string
	// MQTTClientID identifies this publisher on the broker.
	MQTTClientID string
	// MQTTTopic is the topic scores are published to.
	MQTTTopic string

	// BreakerMaxFailures opens the Kafka breaker after this many failures.
	BreakerMaxFailures int
	// BreakerResetTimeout is the wait before the breaker probes again.
	BreakerResetTimeout time.Duration
}

const (
	defaultListenAddress   = ":8090"
	defaultLogFile         = "logs/engine.log"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultShutdown        = 5 * time.Second
	defaultPropsPath       = "engine.properties"
	defaultBroadcastPeriod = 5 * time.Second
	defaultHistorySize     = 720
	defaultCacheTTL        = 5 * time.Minute
	defaultFetchTimeout    = 10 * time.Second
	defaultKafkaBrokers    = "kafka:9092"
	defaultKafkaTopic      = "focus.scores"
	defaultMQTTBroker      = "tcp://localhost:1883"
	defaultMQTTClientID    = "focus-engine"
	defaultMQTTTopic       = "focus/scores"
	defaultBreakerFailures = 5
	defaultBreakerReset    = 30 * time.Second
)

// Default returns the built-in configuration used before any properties
// file or environment overrides are applied.
func Default() Config {
	return Config{
		ListenAddress:       defaultListenAddress,
		LogFilePath:         filepath.Clean(defaultLogFile),
		HTTPReadTimeout:     defaultReadTimeout,
		HTTPWriteTimeout:    defaultWriteTimeout,
		ShutdownTimeout:     defaultShutdown,
		BroadcastPeriod:     defaultBroadcastPeriod,
		HistorySize:         defaultHistorySize,
		CacheTTL:            defaultCacheTTL,
		FetchTimeout:        defaultFetchTimeout,
		SimulatedFallback:   true,
		Sources:             defaultSources(),
		Backends:            map[string]BackendConfig{},
		PollIntervals:       defaultPollIntervals(),
		KafkaBrokers:        splitAndTrim(defaultKafkaBrokers),
		KafkaTopic:          defaultKafkaTopic,
		MQTTBroker:          defaultMQTTBroker,
		MQTTClientID:        defaultMQTTClientID,
		MQTTTopic:           defaultMQTTTopic,
		BreakerMaxFailures:  defaultBreakerFailures,
		BreakerResetTimeout: defaultBreakerReset,
	}
}

// Load resolves configuration by layering defaults, an optional
// properties file, and finally environment variables. The properties file
// location can be overridden with ENGINE_PROPERTIES_PATH.
func Load() (Config, error) {
	cfg := Default()

	propsPath := strings.TrimSpace(os.Getenv("ENGINE_PROPERTIES_PATH"))
	if propsPath == "" {
		propsPath = defaultPropsPath
	}
	cfg.PropertiesPath = propsPath

	if err := applyProperties(&cfg, propsPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func defaultSources() map[string][]string {
	return map[string][]string{
		"physiological": {"fitbit", "oura"},
		"interruption":  {"notifier"},
		"environmental": {"noise"},
	}
}

func defaultPollIntervals() map[string]time.Duration {
	return map[string]time.Duration{
		"physiological": time.Minute,
		"interruption":  5 * time.Second,
		"environmental": 5 * time.Second,
	}
}

func (c Config) validate() error {
	if strings.TrimSpace(c.ListenAddress) == "" {
		return errors.New("listen address cannot be empty")
	}
	if len(c.KafkaBrokers) == 0 {
		return errors.New("at least one kafka broker is required")
	}
	if strings.TrimSpace(c.KafkaTopic) == "" {
		return errors.New("kafka topic cannot be empty")
	}
	if c.BroadcastPeriod <= 0 {
		return errors.New("broadcast period must be positive")
	}
	if c.HistorySize < 1 {
		return errors.New("history size must be >= 1")
	}
	for kind, ranking := range c.Sources {
		if len(ranking) == 0 && !c.SimulatedFallback {
			return fmt.Errorf("kind %s has no backends and no simulated fallback", kind)
		}
	}
	return nil
}

func applyProperties(cfg *Config, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") || strings.HasPrefix(raw, ";") {
			continue
		}
		key, value, ok := strings.Cut(raw, "=")
		if !ok {
			return fmt.Errorf("%s:%d: malformed property line", path, line)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if err := applyProperty(cfg, key, value); err != nil {
			return fmt.Errorf("%s:%d: %w", path, line, err)
		}
	}
	return scanner.Err()
}

func applyProperty(cfg *Config, key, value string) error {
	switch key {
	case "http.listen":
		cfg.ListenAddress = value
	case "log.file":
		cfg.LogFilePath = filepath.Clean(value)
	case "http.read_timeout_ms":
		return setDurationMS(&cfg.HTTPReadTimeout, value)
	case "http.write_timeout_ms":
		return setDurationMS(&cfg.HTTPWriteTimeout, value)
	case "shutdown.timeout_ms":
		return setDurationMS(&cfg.ShutdownTimeout, value)
	case "broadcast.period_ms":
		return setDurationMS(&cfg.BroadcastPeriod, value)
	case "history.max":
		return setInt(&cfg.HistorySize, value)
	case "cache.ttl_seconds":
		return setDurationSec(&cfg.CacheTTL, value)
	case "fetch.timeout_ms":
		return setDurationMS(&cfg.FetchTimeout, value)
	case "resolver.allow_stale":
		cfg.AllowStale = parseBool(value)
	case "resolver.simulated_fallback":
		cfg.SimulatedFallback = parseBool(value)
	case "kafka.brokers":
		cfg.KafkaBrokers = splitAndTrim(value)
	case "kafka.topic":
		cfg.KafkaTopic = value
	case "mqtt.enabled":
		cfg.MQTTEnabled = parseBool(value)
	case "mqtt.broker":
		cfg.MQTTBroker = value
	case "mqtt.client_id":
		cfg.MQTTClientID = value
	case "mqtt.topic":
		cfg.MQTTTopic = value
	case "breaker.max_failures":
		return setInt(&cfg.BreakerMaxFailures, value)
	case "breaker.reset_seconds":
		return setDurationSec(&cfg.BreakerResetTimeout, value)
	default:
		// sources.<kind>, poll.<kind>_ms, backend.<name>.url|token
		if kind, ok := strings.CutPrefix(key, "sources."); ok {
			cfg.Sources[kind] = splitAndTrim(value)
			return nil
		}
		if rest, ok := strings.CutPrefix(key, "poll."); ok {
			kind, found := strings.CutSuffix(rest, "_ms")
			if !found {
				return fmt.Errorf("unknown property %q", key)
			}
			var d time.Duration
			if err := setDurationMS(&d, value); err != nil {
				return err
			}
			cfg.PollIntervals[kind] = d
			return nil
		}
		if rest, ok := strings.CutPrefix(key, "backend."); ok {
			name, field, found := strings.Cut(rest, ".")
			if !found {
				return fmt.Errorf("unknown property %q", key)
			}
			bc := cfg.Backends[name]
			switch field {
			case "url":
				bc.URL = value
			case "token":
				bc.Token = value
			default:
				return fmt.Errorf("unknown backend field %q", field)
			}
			cfg.Backends[name] = bc
			return nil
		}
		return fmt.Errorf("unknown property %q", key)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv("ENGINE_LISTEN_ADDR")); v != "" {
		cfg.ListenAddress = v
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_LOG_FILE")); v != "" {
		cfg.LogFilePath = filepath.Clean(v)
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_BROADCAST_MS")); v != "" {
		if err := setDurationMS(&cfg.BroadcastPeriod, v); err != nil {
			return fmt.Errorf("ENGINE_BROADCAST_MS: %w", err)
		}
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_CACHE_TTL_SECONDS")); v != "" {
		if err := setDurationSec(&cfg.CacheTTL, v); err != nil {
			return fmt.Errorf("ENGINE_CACHE_TTL_SECONDS: %w", err)
		}
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_KAFKA_BROKERS")); v != "" {
		cfg.KafkaBrokers = splitAndTrim(v)
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_KAFKA_TOPIC")); v != "" {
		cfg.KafkaTopic = v
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_MQTT_BROKER")); v != "" {
		cfg.MQTTBroker = v
		cfg.MQTTEnabled = true
	}
	// provider credentials usually arrive via the environment, not the file
	if v := strings.TrimSpace(os.Getenv("FITBIT_ACCESS_TOKEN")); v != "" {
		bc := cfg.Backends["fitbit"]
		bc.Token = v
		cfg.Backends["fitbit"] = bc
	}
	if v := strings.TrimSpace(os.Getenv("OURA_ACCESS_TOKEN")); v != "" {
		bc := cfg.Backends["oura"]
		bc.Token = v
		cfg.Backends["oura"] = bc
	}
	return nil
}

func setDurationMS(dst *time.Duration, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return fmt.Errorf("expected positive integer milliseconds, got %q", value)
	}
	*dst = time.Duration(n) * time.Millisecond
	return nil
}

func setDurationSec(dst *time.Duration, value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f <= 0 {
		return fmt.Errorf("expected positive seconds, got %q", value)
	}
	*dst = time.Duration(f * float64(time.Second))
	return nil
}

func setInt(dst *int, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return fmt.Errorf("expected positive integer, got %q", value)
	}
	*dst = n
	return nil
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
