// Package monitoring exposes Prometheus metrics for the price service.
package monitoring

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"goldprice-api/internal/models"
	"goldprice-api/internal/usagelog"
)

type Metrics struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	upstreamAttemptsTotal *prometheus.CounterVec
	upstreamDuration      *prometheus.HistogramVec
	paidCallsTotal        prometheus.Counter

	cacheHitsTotal  prometheus.Counter
	cacheStaleTotal prometheus.Counter
	breakerOpenings prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goldprice_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),
		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "goldprice_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		upstreamAttemptsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goldprice_upstream_attempts_total",
				Help: "Upstream fetch attempts by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		upstreamDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "goldprice_upstream_duration_seconds",
				Help:    "Upstream fetch duration in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"source"},
		),
		paidCallsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "goldprice_paid_api_calls_total",
				Help: "Total calls made to the paid upstream",
			},
		),
		cacheHitsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "goldprice_cache_hits_total",
				Help: "Requests served from the fresh cache",
			},
		),
		cacheStaleTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "goldprice_cache_stale_served_total",
				Help: "Requests served from an expired cache entry",
			},
		),
		breakerOpenings: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "goldprice_breaker_openings_total",
				Help: "Times the primary circuit breaker opened",
			},
		),
	}
}

func (m *Metrics) RecordCacheHit()       { m.cacheHitsTotal.Inc() }
func (m *Metrics) RecordStaleServed()    { m.cacheStaleTotal.Inc() }
func (m *Metrics) RecordBreakerOpening() { m.breakerOpenings.Inc() }

// HTTPMetrics is a gin middleware recording request counts and latency.
// The route template is used as the endpoint label so path parameters do
// not explode cardinality.
func (m *Metrics) HTTPMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.httpRequestsTotal.WithLabelValues(
			c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status()),
		).Inc()
		m.httpRequestDuration.WithLabelValues(
			c.Request.Method, endpoint,
		).Observe(time.Since(start).Seconds())
	}
}

// UsageRecorder adapts Metrics to the usagelog.Recorder interface so
// upstream fetch outcomes feed the counters alongside the log sinks.
type UsageRecorder struct {
	metrics *Metrics
}

func NewUsageRecorder(m *Metrics) *UsageRecorder {
	return &UsageRecorder{metrics: m}
}

func (r *UsageRecorder) Record(_ context.Context, entry usagelog.Entry) {
	outcome := "success"
	if !entry.Success {
		outcome = "failure"
	}
	r.metrics.upstreamAttemptsTotal.WithLabelValues(string(entry.Source), outcome).Inc()
	r.metrics.upstreamDuration.WithLabelValues(string(entry.Source)).
		Observe(float64(entry.LatencyMs) / 1000)

	if entry.Source == models.SourcePaid {
		r.metrics.paidCallsTotal.Inc()
	}
}
