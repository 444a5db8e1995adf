package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/b3ckham/Orchestrator/pkg/config"
)

// EvaluationMetrics tracks evaluations against the live artifact.
//
// Metrics:
//   - <ns>_<sub>_evaluations_total: evaluations by rule set and result
//   - <ns>_<sub>_evaluation_duration_seconds: evaluation latency by rule set
//   - <ns>_<sub>_rules_fired: rules fired per evaluation
type EvaluationMetrics struct {
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec
	rulesFired         prometheus.Histogram
}

// NewEvaluationMetrics creates and registers evaluation metrics with the provided registry.
func NewEvaluationMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *EvaluationMetrics {
	em := &EvaluationMetrics{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluations_total",
				Help:      "Total number of evaluations",
			},
			[]string{"rule_set", "result"},
		),

		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of a single evaluation in seconds",
				// Evaluations should be fast (< 10ms) unless scripts run
				Buckets: prometheus.ExponentialBuckets(0.00001, 2, 16), // 10µs to ~0.3s
			},
			[]string{"rule_set"},
		),

		rulesFired: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rules_fired",
				Help:      "Number of rules fired per evaluation",
				Buckets:   []float64{0, 1, 2, 3, 5, 10, 25},
			},
		),
	}

	registry.MustRegister(
		em.evaluationsTotal,
		em.evaluationDuration,
		em.rulesFired,
	)

	return em
}

// RecordEvaluation records one evaluation.
func (em *EvaluationMetrics) RecordEvaluation(ruleSet, result string, duration time.Duration) {
	em.evaluationsTotal.WithLabelValues(ruleSet, result).Inc()
	em.evaluationDuration.WithLabelValues(ruleSet).Observe(duration.Seconds())
}

// RecordFired records the number of rules one evaluation fired.
func (em *EvaluationMetrics) RecordFired(fired int) {
	em.rulesFired.Observe(float64(fired))
}
