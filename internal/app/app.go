// v1
// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"

	"focusquality/engine/internal/aggregate"
	"focusquality/engine/internal/backends"
	"focusquality/engine/internal/breaker"
	"focusquality/engine/internal/broadcast"
	"focusquality/engine/internal/collect"
	"focusquality/engine/internal/config"
	"focusquality/engine/internal/core"
	"focusquality/engine/internal/httpapi"
	"focusquality/engine/internal/logging"
	"focusquality/engine/internal/metrics"
	"focusquality/engine/internal/publish"
	"focusquality/engine/internal/resolve"
)

// plausibility bounds enforced by each kind's resolver; readings outside
// these are treated as backend failures, not data.
var valueBounds = map[core.SignalKind]struct{ min, max float64 }{
	core.Physiological:     {1, 300},
	core.InterruptionCount: {0, 1000},
	core.Environmental:     {0, 100},
}

// Application wires configuration, logging, the collectors, the broadcast
// loop, the publish sinks, and the HTTP surface, and owns graceful
// shutdown for all of them.
type Application struct {
	cfg     config.Config
	log     *slog.Logger
	logFile *os.File

	state   *aggregate.State
	history *broadcast.History
	health  *httpapi.HealthState
	workers []*collect.Worker
	loop    *broadcast.Loop
	kafka   *publish.Kafka
	mqtt    *publish.MQTT
	server  *http.Server
}

// New prepares a fully wired engine instance from the supplied
// configuration.
func New(cfg config.Config) (*Application, error) {
	logger, logFile := logging.Init(cfg.LogFilePath)

	state := aggregate.New(logger)
	history := broadcast.NewHistory(cfg.HistorySize)
	health := httpapi.NewHealthState()

	workers, err := buildWorkers(cfg, state, logger)
	if err != nil {
		if logFile != nil {
			_ = logFile.Close()
		}
		return nil, err
	}

	kafkaBreaker := breaker.New("kafka-publisher", breaker.Config{
		MaxFailures:      cfg.BreakerMaxFailures,
		ResetTimeout:     cfg.BreakerResetTimeout,
		SuccessesToClose: 1,
	}, logger)
	kafkaSink := publish.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic, kafkaBreaker, logger)
	publishers := []broadcast.Publisher{kafkaSink}

	var mqttSink *publish.MQTT
	if cfg.MQTTEnabled {
		clientID := cfg.MQTTClientID + "-" + uuid.New().String()[:8]
		mqttSink, err = publish.NewMQTT(cfg.MQTTBroker, clientID, cfg.MQTTTopic, logger)
		if err != nil {
			// the MQTT sink is optional; a dead broker must not stop the engine
			logger.Warn("mqtt_sink_disabled", slog.String("error", err.Error()))
		} else {
			publishers = append(publishers, mqttSink)
		}
	}

	loop := broadcast.NewLoop(state, history, publishers, cfg.BroadcastPeriod, logger)

	api := httpapi.NewServer(logger, health, state, history)
	handler := handlers.LoggingHandler(os.Stdout, api.Router())
	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPWriteTimeout,
	}

	return &Application{
		cfg:     cfg,
		log:     logger,
		logFile: logFile,
		state:   state,
		history: history,
		health:  health,
		workers: workers,
		loop:    loop,
		kafka:   kafkaSink,
		mqtt:    mqttSink,
		server:  server,
	}, nil
}

// Logger exposes the configured slog logger so main can emit structured
// logs after initialization.
func (a *Application) Logger() *slog.Logger {
	return a.log
}

func buildWorkers(cfg config.Config, state *aggregate.State, logger *slog.Logger) ([]*collect.Worker, error) {
	obs := metrics.CacheObserver{}
	workers := make([]*collect.Worker, 0, len(core.Kinds()))

	for _, kind := range core.Kinds() {
		ranking := cfg.Sources[kind.String()]
		backendList := make([]resolve.Backend, 0, len(ranking))
		var fallback resolve.Backend

		for _, name := range ranking {
			if name == "simulated" {
				// a simulated entry inside the ranking doubles as the fallback
				fallback = backends.NewSimulated(kind, time.Now().UnixNano())
				backendList = append(backendList, fallback)
				continue
			}
			b, err := buildBackend(kind, name, cfg)
			if err != nil {
				return nil, err
			}
			brk := breaker.New(name+"-backend", breaker.Config{
				MaxFailures:      cfg.BreakerMaxFailures,
				ResetTimeout:     cfg.BreakerResetTimeout,
				SuccessesToClose: 1,
			}, logger)
			backendList = append(backendList, resolve.Guard(b, brk))
		}
		if fallback == nil && cfg.SimulatedFallback {
			fallback = backends.NewSimulated(kind, time.Now().UnixNano())
		}

		bounds := valueBounds[kind]
		resolver := resolve.New(kind, backendList, fallback, resolve.Config{
			TTL:          cfg.CacheTTL,
			FetchTimeout: cfg.FetchTimeout,
			ValueMin:     bounds.min,
			ValueMax:     bounds.max,
			AllowStale:   cfg.AllowStale,
		}, logger, obs)

		interval := cfg.PollIntervals[kind.String()]
		workers = append(workers, collect.NewWorker(kind, resolver, state, interval, logger))
	}
	return workers, nil
}

func buildBackend(kind core.SignalKind, name string, cfg config.Config) (resolve.Backend, error) {
	bc := cfg.Backends[name]
	switch name {
	case "fitbit":
		return backends.NewHTTP(name, bc.URL, bc.Token, cfg.FetchTimeout, backends.ParseFitbitHRV), nil
	case "oura":
		return backends.NewHTTP(name, bc.URL, bc.Token, cfg.FetchTimeout, backends.ParseOuraHRV), nil
	default:
		// relay endpoints (notification counter, noise meter) expose a
		// flat {"value": N} body
		if !kind.Valid() {
			return nil, fmt.Errorf("backend %q configured for unknown kind", name)
		}
		return backends.NewHTTP(name, bc.URL, bc.Token, cfg.FetchTimeout, backends.ParseValueField), nil
	}
}

// Run blocks until the context is cancelled or the HTTP server fails. It
// starts one goroutine per collector, one for the broadcast loop, and one
// for the HTTP server, then shuts everything down within the configured
// grace period.
func (a *Application) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	httpCh := make(chan error, 1)
	go func() {
		a.log.Info("http_server_listen", slog.String("address", a.cfg.ListenAddress))
		err := a.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpCh <- err
			return
		}
		httpCh <- nil
	}()

	var wg sync.WaitGroup
	for _, w := range a.workers {
		wg.Add(1)
		go func(w *collect.Worker) {
			defer wg.Done()
			w.Run(ctx)
		}(w)
	}

	loopCh := make(chan error, 1)
	go func() {
		loopCh <- a.loop.Run(ctx)
	}()

	a.health.SetReady(true)
	a.log.Info("engine_started",
		slog.Int("collectors", len(a.workers)),
		slog.String("broadcast_period", a.cfg.BroadcastPeriod.String()),
	)

	var httpErr error
	select {
	case err := <-httpCh:
		httpErr = err
		if err != nil {
			a.log.Error("http_server_error", slog.Any("err", err))
		}
		cancel()
	case err := <-loopCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			a.log.Error("broadcast_loop_error", slog.Any("err", err))
		}
		cancel()
	case <-ctx.Done():
		a.log.Info("shutdown_signal")
	}

	a.health.SetReady(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		a.log.Error("server_shutdown_failed", slog.Any("err", err))
		if httpErr == nil {
			httpErr = fmt.Errorf("shutdown: %w", err)
		}
	}

	// collectors and the loop stop via ctx; bound the wait so a hung
	// in-flight fetch cannot stall shutdown
	waited := make(chan struct{})
	go func() {
		wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(a.cfg.ShutdownTimeout):
		a.log.Warn("collector_shutdown_timeout")
	}

	if err := a.kafka.Close(); err != nil {
		a.log.Warn("kafka_close_failed", slog.Any("err", err))
	}
	if a.mqtt != nil {
		a.mqtt.Close()
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
	a.log.Info("engine_stopped")
	return httpErr
}
