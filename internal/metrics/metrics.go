// Package metrics exposes prometheus instrumentation for the engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the engine's prometheus collectors. A nil *Metrics is a
// valid no-op so tests can skip instrumentation.
type Metrics struct {
	SweepsTotal       prometheus.Counter
	EscalationsTotal  *prometheus.CounterVec
	BreachesTotal     *prometheus.CounterVec
	EvaluationsTotal  prometheus.Counter
	BatchItemFailures prometheus.Counter
	BreakerState      *prometheus.GaugeVec
	UnhealthyDevices  prometheus.Gauge
}

// New registers the engine collectors with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SweepsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "slaengine_sweeps_total",
			Help: "Number of escalation sweeps executed",
		}),
		EscalationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "slaengine_escalations_total",
			Help: "Escalation actions performed, by severity tier",
		}, []string{"tier"}),
		BreachesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "slaengine_breaches_total",
			Help: "SLA breaches detected, by kind (response/resolution)",
		}, []string{"kind"}),
		EvaluationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "slaengine_evaluations_total",
			Help: "Ticket SLA evaluations performed",
		}),
		BatchItemFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "slaengine_batch_item_failures_total",
			Help: "Batch items that failed after exhausting retries",
		}),
		BreakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "slaengine_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		}, []string{"name"}),
		UnhealthyDevices: factory.NewGauge(prometheus.GaugeOpts{
			Name: "slaengine_unhealthy_devices",
			Help: "Unhealthy devices in the most recent fleet health check",
		}),
	}
}

// IncSweep counts one sweep.
func (m *Metrics) IncSweep() {
	if m != nil {
		m.SweepsTotal.Inc()
	}
}

// IncEscalation counts one escalation action for a tier.
func (m *Metrics) IncEscalation(tier string) {
	if m != nil {
		m.EscalationsTotal.WithLabelValues(tier).Inc()
	}
}

// IncBreach counts one detected breach of the given kind.
func (m *Metrics) IncBreach(kind string) {
	if m != nil {
		m.BreachesTotal.WithLabelValues(kind).Inc()
	}
}

// IncEvaluation counts one ticket evaluation.
func (m *Metrics) IncEvaluation() {
	if m != nil {
		m.EvaluationsTotal.Inc()
	}
}

// AddBatchItemFailures counts items that failed after exhausting retries.
func (m *Metrics) AddBatchItemFailures(n int) {
	if m != nil && n > 0 {
		m.BatchItemFailures.Add(float64(n))
	}
}

// SetBreakerState records a breaker state transition.
func (m *Metrics) SetBreakerState(name string, value float64) {
	if m != nil {
		m.BreakerState.WithLabelValues(name).Set(value)
	}
}

// SetUnhealthyDevices records the unhealthy count of a fleet check.
func (m *Metrics) SetUnhealthyDevices(n int) {
	if m != nil {
		m.UnhealthyDevices.Set(float64(n))
	}
}
