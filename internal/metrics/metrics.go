// Package metrics exposes Prometheus collectors for admission and lifecycle
// activity.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "campus_events"

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Admissions  *prometheus.CounterVec
	Transitions *prometheus.CounterVec
	Promotions  prometheus.Counter
	Retries     prometheus.Counter
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admission_decisions_total",
			Help:      "Registration attempts by outcome and rejection reason.",
		}, []string{"outcome", "reason"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_transitions_total",
			Help:      "Committed event lifecycle transitions.",
		}, []string{"action", "to"}),
		Promotions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "waitlist_promotions_total",
			Help:      "Waitlisted registrations moved into a freed seat.",
		}),
		Retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registration_conflict_retries_total",
			Help:      "Registration commits retried after a store conflict.",
		}),
	}
	reg.MustRegister(
		m.Admissions,
		m.Transitions,
		m.Promotions,
		m.Retries,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Admission records one registration decision.
func (m *Metrics) Admission(outcome, reason string) {
	if m == nil {
		return
	}
	m.Admissions.WithLabelValues(outcome, reason).Inc()
}

// Transition records one committed lifecycle step.
func (m *Metrics) Transition(action, to string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(action, to).Inc()
}

// Promotion records a waitlist promotion.
func (m *Metrics) Promotion() {
	if m == nil {
		return
	}
	m.Promotions.Inc()
}

// Retry records a conflict retry.
func (m *Metrics) Retry() {
	if m == nil {
		return
	}
	m.Retries.Inc()
}
