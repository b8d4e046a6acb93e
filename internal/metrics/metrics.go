package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	SessionCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "session_cache_hits_total",
			Help: "Total session cache hits during current-user resolution.",
		},
	)
	SessionCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "session_cache_misses_total",
			Help: "Total session cache misses during current-user resolution.",
		},
	)
)

func Register(registry *prometheus.Registry) {
	registry.MustRegister(RequestCount, RequestDuration, SessionCacheHits, SessionCacheMisses)
}

func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
