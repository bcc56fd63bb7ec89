package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)

	httpRequestsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests being served",
		},
		[]string{"service"},
	)
)

// PrometheusMetrics records request count, latency and in-flight requests.
// The path label is the chi route pattern so ids do not explode cardinality.
func PrometheusMetrics(serviceName string) func(next http.Handler) http.Handler {
	inFlight := httpRequestsInFlight.WithLabelValues(serviceName)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			inFlight.Inc()
			defer inFlight.Dec()

			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			labels := prometheus.Labels{
				"service": serviceName,
				"method":  r.Method,
				"path":    routePattern(r),
				"status":  strconv.Itoa(rec.status),
			}
			httpRequestsTotal.With(labels).Inc()
			httpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unknown"
}
