// Package telemetry holds the Prometheus metrics and OpenTelemetry tracing
// setup shared by the gateway and the entity cache.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the client runtime.
// Pass to components that need to record metrics. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	RequestsTotal         *prometheus.CounterVec
	RequestDuration       *prometheus.HistogramVec
	DeauthorizationsTotal *prometheus.CounterVec
	CacheLookupsTotal     *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "coursekit",
				Subsystem: "gateway",
				Name:      "requests_total",
				Help:      "Total number of API requests sent through the gateway",
			},
			[]string{"method", "status"}, // status=2xx/4xx/5xx/network
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "coursekit",
				Subsystem: "gateway",
				Name:      "request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		DeauthorizationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "coursekit",
				Subsystem: "gateway",
				Name:      "deauthorizations_total",
				Help:      "Sessions torn down after a 401/403 response",
			},
			[]string{"path"}, // path=session/fallback
		),
		CacheLookupsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "coursekit",
				Subsystem: "cache",
				Name:      "lookups_total",
				Help:      "Entity cache lookups by resource and result",
			},
			[]string{"resource", "result"}, // result=hit/miss
		),
	}
}

// CacheLookup records a cache hit or miss for resource.
func (m *Metrics) CacheLookup(resource string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(resource, result).Inc()
}

// StatusClass buckets an HTTP status for the requests_total label.
func StatusClass(status int) string {
	switch {
	case status == 0:
		return "network"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
