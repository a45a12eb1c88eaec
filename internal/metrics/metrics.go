// Package metrics defines the Prometheus instruments recorded by the API client
// and the session manager.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for shelfadmin. A nil *Metrics records
// nothing, so components can take one optionally.
type Metrics struct {
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	SessionTeardowns  *prometheus.CounterVec
	SessionsPersisted prometheus.Counter
}

// New creates and registers all metrics with the given registry.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "shelfadmin",
				Name:      "http_requests_total",
				Help:      "Total number of API requests by method and status code",
			},
			[]string{"method", "status"}, // status=200/401/.../error
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "shelfadmin",
				Name:      "http_request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		SessionTeardowns: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "shelfadmin",
				Name:      "session_teardowns_total",
				Help:      "Total session teardowns by reason",
			},
			[]string{"reason"},
		),
		SessionsPersisted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "shelfadmin",
				Name:      "sessions_persisted_total",
				Help:      "Total successful logins whose credential was persisted",
			},
		),
	}
}

// ObserveRequest records one request outcome. status 0 means no response was received.
func (m *Metrics) ObserveRequest(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status != 0 {
		label = strconv.Itoa(status)
	}
	m.RequestsTotal.WithLabelValues(method, label).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveTeardown records a session teardown.
func (m *Metrics) ObserveTeardown(reason string) {
	if m == nil {
		return
	}
	m.SessionTeardowns.WithLabelValues(reason).Inc()
}

// ObservePersisted records a persisted login.
func (m *Metrics) ObservePersisted() {
	if m == nil {
		return
	}
	m.SessionsPersisted.Inc()
}
