package middleware

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "musiot_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "pattern", "status"},
	)
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "musiot_http_request_duration_seconds",
			Help:    "Request processing time",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "pattern"},
	)
)

// RegisterMetrics registers the HTTP metrics with the default registry.
// Call once at startup.
func RegisterMetrics() {
	prometheus.MustRegister(requestsTotal, requestDuration)
}

// statusRecorder captures the status code written by the handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// WithMetrics records request count and duration under the given route
// pattern. The pattern keeps label cardinality bounded regardless of path
// parameters.
func WithMetrics(pattern string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		timer := prometheus.NewTimer(requestDuration.WithLabelValues(r.Method, pattern))
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next(rec, r)

		timer.ObserveDuration()
		requestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(rec.status)).Inc()
	}
}
