package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the portal.
// All methods are safe on a nil receiver so tests can omit metrics.
type Metrics struct {
	registry prometheus.Gatherer

	// Events API call latency by operation and HTTP status ("0" when no response arrived)
	UpstreamLatency *prometheus.HistogramVec

	// Form submissions by form name and outcome
	FormSubmissions *prometheus.CounterVec

	// Session lifecycle events: login, logout, expired
	SessionEvents *prometheus.CounterVec

	// Inbound requests rejected by the rate limiter
	RateLimited prometheus.Counter
}

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers all metrics on reg and serves them from gatherer.
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		registry: gatherer,
		UpstreamLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "eventportal_upstream_duration_seconds",
			Help:    "Duration of events API calls by operation and status",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation", "status"}),

		FormSubmissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eventportal_form_submissions_total",
			Help: "Form submissions by form and outcome",
		}, []string{"form", "outcome"}),

		SessionEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eventportal_session_events_total",
			Help: "Session lifecycle events",
		}, []string{"event"}),

		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "eventportal_rate_limited_total",
			Help: "Requests rejected by the per-IP rate limiter",
		}),
	}
}

// ObserveUpstream records the duration of an events API call.
func (m *Metrics) ObserveUpstream(operation, status string, d time.Duration) {
	if m != nil {
		m.UpstreamLatency.WithLabelValues(operation, status).Observe(d.Seconds())
	}
}

// IncrementSubmission records a finished form submission.
func (m *Metrics) IncrementSubmission(form, outcome string) {
	if m != nil {
		m.FormSubmissions.WithLabelValues(form, outcome).Inc()
	}
}

// IncrementSession records a session lifecycle event.
func (m *Metrics) IncrementSession(event string) {
	if m != nil {
		m.SessionEvents.WithLabelValues(event).Inc()
	}
}

// IncrementRateLimited records a rejected request.
func (m *Metrics) IncrementRateLimited() {
	if m != nil {
		m.RateLimited.Inc()
	}
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
