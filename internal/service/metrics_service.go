package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/roomboard/internal/models"
)

const metricsNamespace = "roomboard"

// MetricsService owns the Prometheus registry of the board and keeps plain counters
// for the JSON summary endpoint.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	cacheLookups    *prometheus.CounterVec
	cacheLatency    *prometheus.HistogramVec
	placements      *prometheus.CounterVec
	saves           *prometheus.CounterVec
	saveDuration    prometheus.Histogram
	fillRate        *prometheus.GaugeVec

	requests     atomic.Uint64
	requestNanos atomic.Uint64
	cacheHits    atomic.Uint64
	cacheMisses  atomic.Uint64
	accepted     atomic.Uint64
	rejected     atomic.Uint64
	savesOK      atomic.Uint64
	savesFailed  atomic.Uint64
}

// NewMetricsService registers the board collectors plus Go runtime and process collectors.
func NewMetricsService() *MetricsService {
	m := &MetricsService{
		registry: prometheus.NewRegistry(),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route template and status.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"method", "route", "status"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Read-model cache lookups by result.",
		}, []string{"result"}),
		cacheLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "operation_duration_seconds",
			Help:      "Redis round trips by operation.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
		}, []string{"op"}),
		placements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "placements_total",
			Help:      "Placement proposals by outcome and rejection reason.",
		}, []string{"outcome", "reason"}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "snapshot_saves_total",
			Help:      "Board snapshot saves by result.",
		}, []string{"result"}),
		saveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "snapshot_save_duration_seconds",
			Help:      "Duration of replace-all snapshot saves.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}),
		fillRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "event_fill_rate",
			Help:      "Share of event days covered by any placement.",
		}, []string{"event"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestDuration,
		m.cacheLookups,
		m.cacheLatency,
		m.placements,
		m.saves,
		m.saveDuration,
		m.fillRate,
	)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
	return m
}

// Handler exposes the Prometheus scrape endpoint.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
	m.requests.Add(1)
	m.requestNanos.Add(uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records a cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.WithLabelValues("get").Observe(duration.Seconds())
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		m.cacheHits.Add(1)
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
	m.cacheMisses.Add(1)
}

// ObserveCacheWrite tracks a cache write.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.WithLabelValues("set").Observe(duration.Seconds())
}

// RecordPlacement counts a placement outcome.
func (m *MetricsService) RecordPlacement(outcome models.Outcome) {
	if m == nil {
		return
	}
	if outcome.Accepted {
		m.placements.WithLabelValues("accepted", "").Inc()
		m.accepted.Add(1)
		return
	}
	reason := ""
	if outcome.Rejection != nil {
		reason = string(outcome.Rejection.Reason)
	}
	m.placements.WithLabelValues("rejected", reason).Inc()
	m.rejected.Add(1)
}

// RecordSave tracks a snapshot save attempt.
func (m *MetricsService) RecordSave(err error, duration time.Duration) {
	if m == nil {
		return
	}
	m.saveDuration.Observe(duration.Seconds())
	if err != nil {
		m.saves.WithLabelValues("error").Inc()
		m.savesFailed.Add(1)
		return
	}
	m.saves.WithLabelValues("ok").Inc()
	m.savesOK.Add(1)
}

// SetFillRate publishes the current fill rate of an event.
func (m *MetricsService) SetFillRate(eventID string, rate float64) {
	if m == nil {
		return
	}
	m.fillRate.WithLabelValues(eventID).Set(rate)
}

// ResetFillRates drops the gauges of every event, used before republishing after a catalog load.
func (m *MetricsService) ResetFillRates() {
	if m == nil {
		return
	}
	m.fillRate.Reset()
}

// Snapshot summarises the counters for the JSON summary endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits, misses := m.cacheHits.Load(), m.cacheMisses.Load()
	requests := m.requests.Load()

	snapshot := models.SystemMetrics{
		CacheHits:          hits,
		CacheMisses:        misses,
		RequestsTotal:      requests,
		PlacementsAccepted: m.accepted.Load(),
		PlacementsRejected: m.rejected.Load(),
		SavesSucceeded:     m.savesOK.Load(),
		SavesFailed:        m.savesFailed.Load(),
		Goroutines:         runtime.NumGoroutine(),
		GeneratedAt:        time.Now().UTC(),
	}
	if hits+misses > 0 {
		snapshot.CacheHitRatio = float64(hits) / float64(hits+misses)
	}
	if requests > 0 {
		snapshot.AverageRequestDurationMs = float64(m.requestNanos.Load()) / float64(requests) / float64(time.Millisecond)
	}
	return snapshot
}
