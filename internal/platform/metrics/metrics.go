package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the HTTP surface and the engine.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry      *prometheus.Registry
	reqTotal      *prometheus.CounterVec
	reqLatency    *prometheus.HistogramVec
	transitions   *prometheus.CounterVec
	sweeps        *prometheus.CounterVec
	notifications *prometheus.CounterVec
	rollbacks     *prometheus.CounterVec
}

// New creates a Metrics instance with a private Prometheus registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		reqTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests"},
			[]string{"method", "path", "status"},
		),
		reqLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "Request latency in seconds", Buckets: prometheus.DefBuckets},
			[]string{"method", "path", "status"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "transaction_transitions_total", Help: "Transaction status transitions"},
			[]string{"from", "to"},
		),
		sweeps: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "sweep_affected_transactions_total", Help: "Transactions affected by sweeps"},
			[]string{"sweep"},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "notifications_total", Help: "Notification events by outcome"},
			[]string{"outcome"},
		),
		rollbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "compensations_total", Help: "Compensating rollbacks by outcome"},
			[]string{"operation", "outcome"},
		),
	}
	m.registry.MustRegister(m.reqTotal, m.reqLatency, m.transitions, m.sweeps, m.notifications, m.rollbacks)
	return m
}

// Middleware returns a Gin middleware that records request counts and latency.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m == nil {
			return
		}
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.reqTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.reqLatency.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

// Handler returns an http.Handler that serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Transition counts a status change.
func (m *Metrics) Transition(from, to string) {
	if m != nil {
		m.transitions.WithLabelValues(from, to).Inc()
	}
}

// Swept counts transactions affected by a sweep run.
func (m *Metrics) Swept(sweep string, n int) {
	if m != nil && n > 0 {
		m.sweeps.WithLabelValues(sweep).Add(float64(n))
	}
}

// Notification counts a notification event outcome: dispatched, failed or dropped.
func (m *Metrics) Notification(outcome string) {
	if m != nil {
		m.notifications.WithLabelValues(outcome).Inc()
	}
}

// Compensation counts a rollback attempt outcome.
func (m *Metrics) Compensation(operation, outcome string) {
	if m != nil {
		m.rollbacks.WithLabelValues(operation, outcome).Inc()
	}
}

// Registry exposes the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
