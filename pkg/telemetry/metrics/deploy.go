package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/b3ckham/Orchestrator/pkg/config"
)

// DeployMetrics tracks rule corpus compilation and deployment.
//
// Metrics:
//   - <ns>_<sub>_builds_total: compilations by result
//   - <ns>_<sub>_build_duration_seconds: compilation latency by result
//   - <ns>_<sub>_deploys_total: deploys by result
//   - <ns>_<sub>_deploy_rule_sets: rule sets submitted per deploy
//   - <ns>_<sub>_deploy_retries_total: attempts lost to a concurrent commit
//   - <ns>_<sub>_active_rule_sets: rule sets in the live artifact
type DeployMetrics struct {
	buildsTotal    *prometheus.CounterVec
	buildDuration  *prometheus.HistogramVec
	deploysTotal   *prometheus.CounterVec
	deployRuleSets prometheus.Histogram
	retriesTotal   prometheus.Counter
	activeRuleSets prometheus.Gauge
}

// NewDeployMetrics creates and registers deploy metrics with the provided registry.
func NewDeployMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *DeployMetrics {
	dm := &DeployMetrics{
		buildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "builds_total",
				Help:      "Total number of rule corpus compilations",
			},
			[]string{"result"},
		),

		buildDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "build_duration_seconds",
				Help:      "Duration of rule corpus compilation in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
			},
			[]string{"result"},
		),

		deploysTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "deploys_total",
				Help:      "Total number of deploy requests",
			},
			[]string{"result"},
		),

		deployRuleSets: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "deploy_rule_sets",
				Help:      "Number of rule sets submitted per deploy",
				Buckets:   []float64{1, 2, 5, 10, 25, 50, 100},
			},
		),

		retriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "deploy_retries_total",
				Help:      "Deploy attempts discarded because another deploy committed first",
			},
		),

		activeRuleSets: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "active_rule_sets",
				Help:      "Number of rule sets in the live artifact",
			},
		),
	}

	registry.MustRegister(
		dm.buildsTotal,
		dm.buildDuration,
		dm.deploysTotal,
		dm.deployRuleSets,
		dm.retriesTotal,
		dm.activeRuleSets,
	)

	return dm
}

// RecordBuild records a compilation.
func (dm *DeployMetrics) RecordBuild(result string, duration time.Duration) {
	dm.buildsTotal.WithLabelValues(result).Inc()
	dm.buildDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// RecordDeploy records a finished deploy.
func (dm *DeployMetrics) RecordDeploy(result string, ruleSets int) {
	dm.deploysTotal.WithLabelValues(result).Inc()
	dm.deployRuleSets.Observe(float64(ruleSets))
}

// RecordRetry records a discarded attempt.
func (dm *DeployMetrics) RecordRetry() {
	dm.retriesTotal.Inc()
}

// SetActiveRuleSets sets the active rule-set gauge.
func (dm *DeployMetrics) SetActiveRuleSets(n int) {
	dm.activeRuleSets.Set(float64(n))
}
