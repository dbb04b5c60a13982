package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Web server metrics.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webforge_http_requests_total",
		Help: "Total HTTP requests by route, method, and status code",
	}, []string{"route", "method", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webforge_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"route", "method"})

	RateLimitHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webforge_rate_limit_hits_total",
		Help: "Total rate limit rejections",
	})
)

// Generation pipeline metrics.
var (
	GenerationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webforge_generations_total",
		Help: "Generations by result",
	}, []string{"result"})

	GenerationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "webforge_generation_duration_seconds",
		Help:    "End-to-end generation duration in seconds",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
	})

	ModelCallDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "webforge_model_call_duration_seconds",
		Help:    "Chat-completion call duration in seconds",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
	})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webforge_response_cache_lookups_total",
		Help: "Response cache lookups by result",
	}, []string{"result"})

	ActiveGenerations = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "webforge_active_generations",
		Help: "Generations currently being processed",
	})
)

// Database pool metrics (gauges updated periodically, postgres only).
var (
	DBPoolTotalConns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "webforge_db_pool_total_conns",
		Help: "Total number of connections in the pool",
	})

	DBPoolIdleConns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "webforge_db_pool_idle_conns",
		Help: "Number of idle connections in the pool",
	})

	DBPoolAcquiredConns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "webforge_db_pool_acquired_conns",
		Help: "Number of acquired connections in the pool",
	})
)
