// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     prometheus.CounterVec
	HTTPRequestDuration   prometheus.HistogramVec
	HTTPRequestSize       prometheus.HistogramVec
	HTTPResponseSize      prometheus.HistogramVec
	HTTPActiveConnections prometheus.GaugeVec

	// Cache metrics
	CacheHitsTotal   prometheus.CounterVec
	CacheMissesTotal prometheus.CounterVec

	// Rate limiting metrics
	RateLimitExceededTotal prometheus.CounterVec

	// Database metrics
	DatabaseQueryDuration prometheus.HistogramVec
	DatabaseQueriesTotal  prometheus.CounterVec

	// Feed metrics
	FeedGenerationTime prometheus.HistogramVec
	FeedPoolSize       prometheus.HistogramVec

	// Domain events
	InteractionsTotal    prometheus.CounterVec
	RealtimePublishTotal prometheus.CounterVec
	SearchRequestsTotal  prometheus.CounterVec
	CounterDriftTotal    prometheus.Counter

	// Error metrics
	ErrorsTotal prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			// HTTP metrics
			HTTPRequestsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestSize: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_size_bytes",
					Help:    "HTTP request body size in bytes",
					Buckets: prometheus.ExponentialBuckets(100, 10, 7),
				},
				[]string{"method", "path"},
			),
			HTTPResponseSize: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_response_size_bytes",
					Help:    "HTTP response size in bytes",
					Buckets: prometheus.ExponentialBuckets(100, 10, 7),
				},
				[]string{"method", "path", "status"},
			),
			HTTPActiveConnections: *promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "http_active_connections",
					Help: "Number of currently active HTTP connections",
				},
				[]string{"method", "path"},
			),

			// Cache metrics
			CacheHitsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_hits_total",
					Help: "Total number of cache hits",
				},
				[]string{"cache_name"},
			),
			CacheMissesTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_misses_total",
					Help: "Total number of cache misses",
				},
				[]string{"cache_name"},
			),

			RateLimitExceededTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "rate_limit_exceeded_total",
					Help: "Total number of rate limit violations",
				},
				[]string{"endpoint", "method"},
			),

			// Database metrics
			DatabaseQueryDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "database_query_duration_seconds",
					Help:    "Database query latency in seconds",
					Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"query_type", "table"},
			),
			DatabaseQueriesTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "database_queries_total",
					Help: "Total number of database queries",
				},
				[]string{"query_type", "table", "status"},
			),

			// Feed metrics
			FeedGenerationTime: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "feed_generation_duration_seconds",
					Help:    "Time to compose a feed page in seconds",
					Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
				},
				[]string{"feed_type"},
			),
			FeedPoolSize: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "feed_pool_size",
					Help:    "Posts contributed to a feed page per pool",
					Buckets: []float64{0, 1, 5, 10, 20, 40, 80, 100},
				},
				[]string{"pool"},
			),

			InteractionsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "interactions_total",
					Help: "Social interactions by kind and direction",
				},
				[]string{"kind", "action"},
			),
			RealtimePublishTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "realtime_publish_total",
					Help: "Realtime pushes by event and outcome",
				},
				[]string{"event", "status"},
			),
			SearchRequestsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "search_requests_total",
					Help: "Search requests by backend and outcome",
				},
				[]string{"backend", "status"},
			),
			CounterDriftTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "post_counter_drift_total",
					Help: "Post counter rows corrected by reconciliation",
				},
			),

			ErrorsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "errors_total",
					Help: "Total number of errors by type",
				},
				[]string{"error_type", "endpoint"},
			),
		}
	})
	return instance
}

// Get returns the global metrics instance
func Get() *Metrics {
	return Initialize()
}
