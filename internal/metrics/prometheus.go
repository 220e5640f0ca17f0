package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_query_duration_seconds",
			Help:    "Query processing duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"service"},
	)

	QueryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_query_total",
			Help: "Total number of queries processed",
		},
		[]string{"service"},
	)

	ClassificationConfidence = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "assistant_classification_confidence",
			Help:    "Context classification confidence scores",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	FallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_fallback_total",
			Help: "Total number of fallback resolutions by strategy",
		},
		[]string{"strategy"},
	)

	RefreshCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "assistant_refresh_cycles_total",
			Help: "Total number of completed refresh cycles",
		},
	)

	RefreshFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_refresh_failures_total",
			Help: "Total number of failed refresh jobs",
		},
		[]string{"unit"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)
)

func Init() {
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(QueryTotal)
	prometheus.MustRegister(ClassificationConfidence)
	prometheus.MustRegister(FallbackTotal)
	prometheus.MustRegister(RefreshCyclesTotal)
	prometheus.MustRegister(RefreshFailuresTotal)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
