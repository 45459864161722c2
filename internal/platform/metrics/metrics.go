package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	Submissions  *prometheus.CounterVec
	Approvals    *prometheus.CounterVec
	Rejections   *prometheus.CounterVec
	AuditDropped prometheus.Counter
	HTTPLatency  *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		Submissions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "admin_console_submissions_total",
			Help: "Change requests submitted or edited by makers, per module",
		}, []string{"module"}),
		Approvals: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "admin_console_approvals_total",
			Help: "Change requests approved by checkers, per module",
		}, []string{"module"}),
		Rejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "admin_console_rejections_total",
			Help: "Change requests rejected by checkers, per module",
		}, []string{"module"}),
		AuditDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "admin_console_audit_entries_dropped_total",
			Help: "Audit entries that failed to persist and were only logged",
		}),
		HTTPLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "admin_console_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) IncSubmissions(module string) {
	if m != nil {
		m.Submissions.WithLabelValues(module).Inc()
	}
}

func (m *Metrics) IncApprovals(module string) {
	if m != nil {
		m.Approvals.WithLabelValues(module).Inc()
	}
}

func (m *Metrics) IncRejections(module string) {
	if m != nil {
		m.Rejections.WithLabelValues(module).Inc()
	}
}

func (m *Metrics) IncAuditDropped() {
	if m != nil {
		m.AuditDropped.Inc()
	}
}

func (m *Metrics) ObserveHTTP(method, route string, elapsed time.Duration) {
	if m != nil {
		m.HTTPLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
	}
}
