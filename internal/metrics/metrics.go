// v1
// internal/metrics/metrics.go
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	readingsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_readings_total",
		Help: "Total readings written to the aggregated state by signal kind.",
	}, []string{"kind"})
	resolveFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_resolve_failures_total",
		Help: "Total resolver failures by signal kind.",
	}, []string{"kind"})
	cacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engine_cache_hits_total",
		Help: "Total resolver cache hits observed.",
	})
	cacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engine_cache_misses_total",
		Help: "Total resolver cache misses observed.",
	})
	broadcastTicksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engine_broadcast_ticks_total",
		Help: "Total broadcast loop ticks executed.",
	})
	publishFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_publish_failures_total",
		Help: "Total publish failures by sink.",
	}, []string{"sink"})
	fqsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "engine_fqs",
		Help: "Most recently computed focus quality score.",
	})
	httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_http_requests_total",
		Help: "Total HTTP requests by route and status.",
	}, []string{"route", "status"})
	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "engine_http_request_duration_seconds",
		Help:    "Histogram of HTTP request durations by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)

func init() {
	prometheus.MustRegister(
		readingsTotal,
		resolveFailuresTotal,
		cacheHitsTotal,
		cacheMissesTotal,
		broadcastTicksTotal,
		publishFailuresTotal,
		fqsGauge,
		httpRequestsTotal,
		httpDuration,
	)
}

// IncReading counts a successful aggregator write for a kind.
func IncReading(kind string) {
	readingsTotal.WithLabelValues(kind).Inc()
}

// IncResolveFailure counts one failed resolve cycle for a kind.
func IncResolveFailure(kind string) {
	resolveFailuresTotal.WithLabelValues(kind).Inc()
}

// IncBroadcastTick counts one completed broadcast loop tick.
func IncBroadcastTick() {
	broadcastTicksTotal.Inc()
}

// IncPublishFailure counts a failed publish attempt for a sink.
func IncPublishFailure(sink string) {
	publishFailuresTotal.WithLabelValues(sink).Inc()
}

// SetFQS records the latest composite score.
func SetFQS(score float64) {
	fqsGauge.Set(score)
}

// ObserveHTTP records one served request for the access-log middleware.
func ObserveHTTP(route string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// CacheObserver adapts the resolver cache's hit/miss callbacks onto the
// Prometheus counters.
type CacheObserver struct{}

func (CacheObserver) CacheHit()  { cacheHitsTotal.Inc() }
func (CacheObserver) CacheMiss() { cacheMissesTotal.Inc() }

// Handler returns the Prometheus exposition endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
