package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contextstack_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contextstack_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	// Aggregation metrics
	ContextRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contextstack_context_requests_total",
			Help: "Context aggregations by outcome",
		},
		[]string{"outcome"}, // "hit", "computed", "not_found", "unavailable", "cancelled"
	)

	AggregationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "contextstack_aggregation_duration_seconds",
			Help:    "Duration of uncached context aggregations",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	CapabilityDegraded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contextstack_capability_degraded_total",
			Help: "NLP capability calls that degraded to an empty result",
		},
		[]string{"capability"}, // "extract_actions" or "search_docs"
	)

	CapabilityLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contextstack_capability_latency_seconds",
			Help:    "NLP capability call latency",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"capability"},
	)

	// Cache metrics
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contextstack_cache_lookups_total",
			Help: "Cache lookups by result",
		},
		[]string{"result"}, // "hit" or "miss"
	)

	CacheFaults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contextstack_cache_faults_total",
			Help: "Absorbed cache store errors",
		},
		[]string{"op"},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contextstack_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)

	// Infrastructure metrics
	RedisLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "contextstack_redis_latency_seconds",
			Help:    "Redis operation latency",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05},
		},
	)

	PostgresLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "contextstack_postgres_latency_seconds",
			Help:    "PostgreSQL query latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1},
		},
	)
)
