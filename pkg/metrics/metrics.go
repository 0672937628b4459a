// Package metrics exposes prometheus instruments for the
// orchestration pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the pipeline instruments behind nil-safe methods; a
// nil *Metrics disables instrumentation.
type Metrics struct {
	registry *prometheus.Registry

	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	subtaskDuration *prometheus.HistogramVec
	subtaskFailures *prometheus.CounterVec
	limiterWait     prometheus.Histogram
}

// New creates a Metrics with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cascade",
			Name:      "cache_hits_total",
			Help:      "Number of response cache hits.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cascade",
			Name:      "cache_misses_total",
			Help:      "Number of response cache misses.",
		}),
		subtaskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cascade",
			Name:      "subtask_duration_seconds",
			Help:      "Subtask execution time by final status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		subtaskFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cascade",
			Name:      "subtask_failures_total",
			Help:      "Subtask failures by kind.",
		}, []string{"kind"}),
		limiterWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cascade",
			Name:      "ratelimit_wait_seconds",
			Help:      "Time spent waiting for rate limiter capacity.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	m.registry.MustRegister(
		m.cacheHits,
		m.cacheMisses,
		m.subtaskDuration,
		m.subtaskFailures,
		m.limiterWait,
	)
	return m
}

// Registry returns the prometheus registry for the HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// CacheHit counts a cache hit.
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

// CacheMiss counts a cache miss.
func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}

// ObserveSubtask records one subtask execution.
func (m *Metrics) ObserveSubtask(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.subtaskDuration.WithLabelValues(status).Observe(d.Seconds())
}

// SubtaskFailure counts a subtask failure by kind.
func (m *Metrics) SubtaskFailure(kind string) {
	if m == nil {
		return
	}
	m.subtaskFailures.WithLabelValues(kind).Inc()
}

// ObserveLimiterWait records time spent waiting for capacity.
func (m *Metrics) ObserveLimiterWait(d time.Duration) {
	if m == nil {
		return
	}
	m.limiterWait.Observe(d.Seconds())
}
