package formwork

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Submission outcomes counted by the service.
const (
	outcomeAccepted     = "accepted"
	outcomeInvalid      = "invalid"
	outcomeCSRF         = "csrf_failed"
	outcomeError        = "error"
	outcomeNotSubmitted = "not_submitted"
	outcomeRejected     = "rejected"
)

// metrics holds the service counters.  Each service has its own registry.
type metrics struct {
	registry    *prometheus.Registry
	renders     *prometheus.CounterVec
	submissions *prometheus.CounterVec
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "formwork",
			Name:      "form_renders_total",
			Help:      "Number of rendered forms.",
		}, []string{"form"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "formwork",
			Name:      "submissions_total",
			Help:      "Number of form submissions by outcome.",
		}, []string{"form", "outcome"}),
	}
	m.registry.MustRegister(m.renders, m.submissions)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
