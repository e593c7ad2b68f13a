package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// labelHandler partitions HTTP metrics by logical endpoint name rather than
// raw URL path, so query strings never explode cardinality.
const labelHandler = "handler"

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// One instance is created in New against cfg.MetricsRegistry so tests can
// use an isolated registry.
type serverMetrics struct {
	// matchRequestsTotal counts product match requests by outcome: matched,
	// empty_query, no_candidates, below_threshold or error.
	matchRequestsTotal *prometheus.CounterVec

	// matchDurationSeconds records end-to-end match latency by outcome.
	matchDurationSeconds *prometheus.HistogramVec

	// upstreamErrorsTotal counts 500 responses by error kind.
	upstreamErrorsTotal *prometheus.CounterVec

	sqlRequestsTotal *prometheus.CounterVec

	// saleReportsTotal counts sale reports by mode (rules, ai) and outcome.
	saleReportsTotal *prometheus.CounterVec

	httpRequestsTotal   *prometheus.CounterVec
	httpDurationSeconds *prometheus.HistogramVec
}

func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		matchRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopai",
			Subsystem: "match",
			Name:      "requests_total",
			Help:      "Product match requests, partitioned by outcome.",
		}, []string{"outcome"}),

		matchDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shopai",
			Subsystem: "match",
			Name:      "duration_seconds",
			Help:      "Duration of product match requests including embedding and vector search.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15},
		}, []string{"outcome"}),

		upstreamErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopai",
			Subsystem: "upstream",
			Name:      "errors_total",
			Help:      "Requests that failed on an upstream dependency, partitioned by error kind.",
		}, []string{"kind"}),

		sqlRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopai",
			Subsystem: "sql",
			Name:      "requests_total",
			Help:      "SQL assistant requests, partitioned by outcome.",
		}, []string{"outcome"}),

		saleReportsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopai",
			Subsystem: "sales",
			Name:      "reports_total",
			Help:      "Sale analysis reports, partitioned by mode and outcome.",
		}, []string{"mode", "outcome"}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopai",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", labelHandler, "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shopai",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", labelHandler}),
	}
}

// instrument records request count and latency for h under name.
func (m *serverMetrics) instrument(name string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		h.ServeHTTP(rw, r)
		m.httpDurationSeconds.WithLabelValues(r.Method, name).Observe(time.Since(start).Seconds())
		m.httpRequestsTotal.WithLabelValues(r.Method, name, strconv.Itoa(rw.status)).Inc()
	})
}
