// Package metrics exposes engine state-transition counters in Prometheus
// format. The engine reports through the engine.Recorder interface; wiring
// a Prometheus recorder is optional and defaults to a no-op.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus implements engine.Recorder over a prometheus registry.
type Prometheus struct {
	registry *prometheus.Registry

	generated  prometheus.Counter
	completed  *prometheus.CounterVec
	missed     prometheus.Counter
	overridden prometheus.Counter
	rejected   *prometheus.CounterVec
	required   prometheus.Gauge
}

// NewPrometheus creates a recorder with its own registry.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Prometheus{
		registry: reg,
		generated: factory.NewCounter(prometheus.CounterOpts{
			Name: "coldtrack_occurrences_generated_total",
			Help: "REQUIRED occurrences created by generation passes.",
		}),
		completed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coldtrack_occurrences_completed_total",
			Help: "Occurrences completed by reconciled events.",
		}, []string{"on_time"}),
		missed: factory.NewCounter(prometheus.CounterOpts{
			Name: "coldtrack_occurrences_missed_total",
			Help: "Occurrences swept to MISSED.",
		}),
		overridden: factory.NewCounter(prometheus.CounterOpts{
			Name: "coldtrack_occurrences_overridden_total",
			Help: "MISSED occurrences flipped to completed by manual override.",
		}),
		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coldtrack_events_rejected_total",
			Help: "Inbound events rejected before reconciliation.",
		}, []string{"reason"}),
		required: factory.NewGauge(prometheus.GaugeOpts{
			Name: "coldtrack_occurrences_required",
			Help: "Occurrences currently awaiting an event (status REQUIRED).",
		}),
	}
}

// OccurrencesGenerated counts newly created REQUIRED occurrences.
func (p *Prometheus) OccurrencesGenerated(n int) {
	p.generated.Add(float64(n))
}

// OccurrenceCompleted counts a completed occurrence, split by on-time-ness.
func (p *Prometheus) OccurrenceCompleted(onTime bool) {
	label := "false"
	if onTime {
		label = "true"
	}
	p.completed.WithLabelValues(label).Inc()
}

// OccurrencesMissed counts occurrences transitioned by a sweep pass.
func (p *Prometheus) OccurrencesMissed(n int) {
	p.missed.Add(float64(n))
}

// OccurrenceOverridden counts manual overrides.
func (p *Prometheus) OccurrenceOverridden() {
	p.overridden.Inc()
}

// EventRejected counts rejected inbound events by reason code.
func (p *Prometheus) EventRejected(reason string) {
	p.rejected.WithLabelValues(reason).Inc()
}

// SetRequired records the current REQUIRED population. The maintenance
// loop samples it after each sweep; it is an observation of stored state,
// not a transition, so it sits outside the engine.Recorder interface.
func (p *Prometheus) SetRequired(n int64) {
	p.required.Set(float64(n))
}

// Handler returns the scrape endpoint for this recorder's registry.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry exposes the registry for testing.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}
