package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts requests by method, route template and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "satprep_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks request latency by route template.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "satprep_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	// RecommendationsGeneratedTotal counts generated recommendations by type.
	RecommendationsGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "satprep_recommendations_generated_total",
			Help: "Total number of recommendations written by generation runs",
		},
		[]string{"type"},
	)

	// RecommendationGenerationDuration tracks end-to-end generation latency.
	RecommendationGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "satprep_recommendation_generation_duration_seconds",
			Help:    "Duration of recommendation generation runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	// RecommendationsCompletedTotal counts completion mutations that matched a row.
	RecommendationsCompletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "satprep_recommendations_completed_total",
			Help: "Total number of recommendations marked complete",
		},
	)

	// CatalogCacheRequestsTotal counts catalog cache lookups by result (hit, miss, error).
	CatalogCacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "satprep_catalog_cache_requests_total",
			Help: "Catalog cache lookups by result",
		},
		[]string{"result"},
	)

	// CircuitBreakerState reports the server breaker state (0 closed, 1 half-open, 2 open).
	CircuitBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "satprep_circuit_breaker_state",
			Help: "Server circuit breaker state: 0 closed, 1 half-open, 2 open",
		},
	)
)

// RecordGeneration records one generation run
func RecordGeneration(countsByType map[string]int, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	RecommendationGenerationDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	for recType, n := range countsByType {
		RecommendationsGeneratedTotal.WithLabelValues(recType).Add(float64(n))
	}
}

// PrometheusMiddleware records request count and latency per route template
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// PrometheusHandler serves the default registry in the Prometheus text format
func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
