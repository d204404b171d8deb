// Package metrics provides Prometheus metrics for Krishi Sakhi.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "krishi"

// Metrics holds all Prometheus metrics for the service. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	RateLimitedTotal    *prometheus.CounterVec

	// Data cache metrics
	CacheLookupsTotal   *prometheus.CounterVec
	CacheEvictionsTotal prometheus.Counter

	// Upstream feed metrics
	UpstreamFetchesTotal  *prometheus.CounterVec
	UpstreamFetchDuration *prometheus.HistogramVec

	// LLM metrics
	LLMRequestsTotal   *prometheus.CounterVec
	LLMRequestDuration *prometheus.HistogramVec
}

// New creates a Metrics instance registered with the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a Metrics instance registered with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		RateLimitedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-client rate limit.",
		}, []string{"route"}),
		CacheLookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Data cache lookups by resource and result (hit, miss, not_modified).",
		}, []string{"resource", "result"}),
		CacheEvictionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evictions_total",
			Help:      "Live cache entries evicted to respect the size bound.",
		}),
		UpstreamFetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_fetches_total",
			Help:      "Upstream feed fetches by source and provenance of the result.",
		}, []string{"source", "provenance"}),
		UpstreamFetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_fetch_duration_seconds",
			Help:      "Time spent obtaining a feed, fallbacks included.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"source"}),
		LLMRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "LLM completion requests by provider and status.",
		}, []string{"provider", "status"}),
		LLMRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "LLM completion latency in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"provider"}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.RateLimitedTotal,
		m.CacheLookupsTotal,
		m.CacheEvictionsTotal,
		m.UpstreamFetchesTotal,
		m.UpstreamFetchDuration,
		m.LLMRequestsTotal,
		m.LLMRequestDuration,
	)

	return m
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records an HTTP request metric.
func (m *Metrics) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordRateLimited records a request rejected with 429.
func (m *Metrics) RecordRateLimited(route string) {
	if m == nil {
		return
	}
	m.RateLimitedTotal.WithLabelValues(route).Inc()
}

// RecordCacheLookup records a data cache lookup.
func (m *Metrics) RecordCacheLookup(resource, result string) {
	if m == nil {
		return
	}
	m.CacheLookupsTotal.WithLabelValues(resource, result).Inc()
}

// RecordCacheEviction records an entry evicted for space.
func (m *Metrics) RecordCacheEviction() {
	if m == nil {
		return
	}
	m.CacheEvictionsTotal.Inc()
}

// RecordUpstreamFetch records which tier answered a feed request.
func (m *Metrics) RecordUpstreamFetch(source, provenance string, duration time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamFetchesTotal.WithLabelValues(source, provenance).Inc()
	m.UpstreamFetchDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordLLMRequest records a provider call.
func (m *Metrics) RecordLLMRequest(provider, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.LLMRequestsTotal.WithLabelValues(provider, status).Inc()
	m.LLMRequestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}
