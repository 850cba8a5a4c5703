// Package metrics exposes Prometheus collectors for the policy engine.
// Registered only in the long-running watch mode; one-shot hook invocations
// have no scrape surface.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PolicyMetrics tracks policy evaluation activity.
//
// Metrics:
//   - gatehouse_events_total: processed events by outcome and decision
//   - gatehouse_evaluation_duration_seconds: per-event evaluation duration
//   - gatehouse_rule_hits_total: matches per rule
//   - gatehouse_validator_runs_total: validator executions by terminal state
type PolicyMetrics struct {
	eventsTotal        *prometheus.CounterVec
	evaluationDuration prometheus.Histogram
	ruleHitsTotal      *prometheus.CounterVec
	validatorRunsTotal *prometheus.CounterVec
}

// NewPolicyMetrics creates and registers policy metrics with registry.
func NewPolicyMetrics(registry *prometheus.Registry) *PolicyMetrics {
	pm := &PolicyMetrics{
		eventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gatehouse",
				Name:      "events_total",
				Help:      "Total number of processed hook events",
			},
			[]string{"outcome", "decision"},
		),
		evaluationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "gatehouse",
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of event evaluation in seconds",
				// Evaluations without validators should stay under 10ms.
				Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
			},
		),
		ruleHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gatehouse",
				Name:      "rule_hits_total",
				Help:      "Total number of rule matches",
			},
			[]string{"rule"},
		),
		validatorRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gatehouse",
				Name:      "validator_runs_total",
				Help:      "Total number of validator script runs by terminal state",
			},
			[]string{"state"},
		),
	}

	registry.MustRegister(
		pm.eventsTotal,
		pm.evaluationDuration,
		pm.ruleHitsTotal,
		pm.validatorRunsTotal,
	)
	return pm
}

// RecordEvent records one processed event.
func (pm *PolicyMetrics) RecordEvent(outcome, decision string, duration time.Duration) {
	if pm == nil {
		return
	}
	pm.eventsTotal.WithLabelValues(outcome, decision).Inc()
	pm.evaluationDuration.Observe(duration.Seconds())
}

// RecordRuleHit records a rule match.
func (pm *PolicyMetrics) RecordRuleHit(rule string) {
	if pm == nil {
		return
	}
	pm.ruleHitsTotal.WithLabelValues(rule).Inc()
}

// RecordValidatorRun records a validator execution's terminal state.
func (pm *PolicyMetrics) RecordValidatorRun(state string) {
	if pm == nil {
		return
	}
	pm.validatorRunsTotal.WithLabelValues(state).Inc()
}
