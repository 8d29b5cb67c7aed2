package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation. A nil service is
// valid and records nothing.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	expansionDuration prometheus.Histogram
	occurrences       prometheus.Histogram
	truncatedEvents   prometheus.Counter
	rejectedEvents    prometheus.Counter
	digestRuns        *prometheus.CounterVec
	pushMessages      *prometheus.CounterVec
	deadJobs          *prometheus.CounterVec

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status", "scope"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status", "scope"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	expansionDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "calendar_expansion_duration_seconds",
		Help:    "Time spent expanding recurring events for one request",
		Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
	})

	occurrences := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "calendar_expanded_occurrences",
		Help:    "Occurrences produced per expansion",
		Buckets: prometheus.ExponentialBuckets(1, 4, 6),
	})

	truncatedEvents := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "calendar_truncated_events_total",
		Help: "Events whose expansion hit the occurrence cap",
	})

	rejectedEvents := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "calendar_rejected_events_total",
		Help: "Events skipped because their repeat rule is not supported",
	})

	digestRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_families_total",
		Help: "Families processed by digest runs",
	}, []string{"kind", "outcome"})

	pushMessages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "push_messages_total",
		Help: "Push messages handed to the dispatcher",
	}, []string{"kind", "outcome"})

	deadJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobs_dead_letter_total",
		Help: "Background jobs abandoned after exhausting retries",
	}, []string{"queue"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		requestDuration, requestTotal,
		cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		expansionDuration, occurrences, truncatedEvents, rejectedEvents,
		digestRuns, pushMessages, deadJobs,
		goroutines,
	)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:          registry,
		handler:           handler,
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLatency:      cacheLatency,
		cacheWrite:        cacheWrite,
		cacheHitRatio:     cacheHitRatio,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
		expansionDuration: expansionDuration,
		occurrences:       occurrences,
		truncatedEvents:   truncatedEvents,
		rejectedEvents:    rejectedEvents,
		digestRuns:        digestRuns,
		pushMessages:      pushMessages,
		deadJobs:          deadJobs,
	}
}

// Registry exposes the underlying registry for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics. scope is "family" for requests
// made on behalf of a family member and "public" otherwise.
func (m *MetricsService) ObserveHTTPRequest(method, path, scope string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus, scope).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus, scope).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveExpansion records one batch expansion.
func (m *MetricsService) ObserveExpansion(duration time.Duration, occurrences, truncated, rejected int) {
	if m == nil {
		return
	}
	m.expansionDuration.Observe(duration.Seconds())
	m.occurrences.Observe(float64(occurrences))
	m.truncatedEvents.Add(float64(truncated))
	m.rejectedEvents.Add(float64(rejected))
}

// RecordDigestFamily counts a family handled by a digest run. outcome is
// sent, skipped or failed.
func (m *MetricsService) RecordDigestFamily(kind, outcome string) {
	if m == nil {
		return
	}
	m.digestRuns.WithLabelValues(kind, outcome).Inc()
}

// RecordPushMessage counts a message handed to the dispatcher.
func (m *MetricsService) RecordPushMessage(kind string, ok bool) {
	if m == nil {
		return
	}
	outcome := "queued"
	if !ok {
		outcome = "failed"
	}
	m.pushMessages.WithLabelValues(kind, outcome).Inc()
}

// RecordDeadJob counts a job abandoned by a worker queue.
func (m *MetricsService) RecordDeadJob(queue string) {
	if m == nil {
		return
	}
	m.deadJobs.WithLabelValues(queue).Inc()
}
