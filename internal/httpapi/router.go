// v1
// internal/httpapi/router.go
package httpapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"focusquality/engine/internal/aggregate"
	"focusquality/engine/internal/broadcast"
	"focusquality/engine/internal/core"
	"focusquality/engine/internal/metrics"
)

// Server exposes the engine's read-only HTTP surface: health, the latest
// and historical scores, per-source status, and Prometheus metrics.
type Server struct {
	log     *slog.Logger
	health  *HealthState
	state   *aggregate.State
	history *broadcast.History
	start   time.Time
}

func NewServer(log *slog.Logger, health *HealthState, state *aggregate.State, history *broadcast.History) *Server {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		log:     log.With(slog.String("component", "httpapi")),
		health:  health,
		state:   state,
		history: history,
		start:   time.Now(),
	}
}

// Router wires all routes with the metrics middleware.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(metricsMiddleware)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/score/latest", s.handleLatest).Methods(http.MethodGet)
	r.HandleFunc("/score/history", s.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/sources", s.handleSources).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"uptime_s": int(time.Since(s.start).Seconds()),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.health != nil && s.health.Ready() {
		s.writeJSON(w, http.StatusOK, map[string]any{"ready": true})
		return
	}
	s.writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ready": false})
}

func (s *Server) handleLatest(w http.ResponseWriter, _ *http.Request) {
	score, ok := s.history.Latest()
	if !ok {
		s.writeError(w, http.StatusNotFound, "no score computed yet")
		return
	}
	s.writeJSON(w, http.StatusOK, score)
}

func (s *Server) handleHistory(w http.ResponseWriter, _ *http.Request) {
	scores := s.history.Snapshot()
	if scores == nil {
		scores = []core.CompositeScore{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(scores),
		"scores": scores,
	})
}

func (s *Server) handleSources(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.state.Status())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("error encoding JSON response", slog.Any("err", err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]any{"error": msg})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		metrics.ObserveHTTP(r.URL.Path, rw.status, time.Since(start))
	})
}
