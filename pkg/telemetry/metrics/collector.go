package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/b3ckham/Orchestrator/pkg/config"
)

// Result label values.
const (
	ResultSuccess   = "success"
	ResultFailure   = "failure"
	ResultMatched   = "matched"
	ResultUnmatched = "unmatched"
	ResultError     = "error"
)

// otherRuleSet replaces rule-set labels once the cardinality limit is hit.
const otherRuleSet = "other"

// Collector owns the rule host's Prometheus metrics. A nil *Collector is
// valid and records nothing.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	deployMetrics     *DeployMetrics
	evaluationMetrics *EvaluationMetrics

	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a collector and registers its metrics with registry.
// If registry is nil a new one is created.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if cfg == nil {
		cfg = &config.MetricsConfig{Enabled: true}
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}

	return &Collector{
		config:             cfg,
		registry:           registry,
		deployMetrics:      NewDeployMetrics(cfg, registry),
		evaluationMetrics:  NewEvaluationMetrics(cfg, registry),
		cardinalityLimiter: NewCardinalityLimiter(1000),
	}
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordBuild records one compilation of a candidate corpus.
func (c *Collector) RecordBuild(result string, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.deployMetrics.RecordBuild(result, duration)
}

// RecordDeploy records a finished deploy and the number of rule sets it
// submitted.
func (c *Collector) RecordDeploy(result string, ruleSets int) {
	if !c.enabled() {
		return
	}
	c.deployMetrics.RecordDeploy(result, ruleSets)
}

// RecordDeployRetry records a deploy attempt lost to a concurrent commit.
func (c *Collector) RecordDeployRetry() {
	if !c.enabled() {
		return
	}
	c.deployMetrics.RecordRetry()
}

// SetActiveRuleSets sets the number of rule sets in the live artifact.
func (c *Collector) SetActiveRuleSets(n int) {
	if !c.enabled() {
		return
	}
	c.deployMetrics.SetActiveRuleSets(n)
}

// RecordEvaluation records one evaluation against ruleSet.
func (c *Collector) RecordEvaluation(ruleSet, result string, duration time.Duration) {
	if !c.enabled() {
		return
	}
	if !c.cardinalityLimiter.Allow(ruleSet) {
		ruleSet = otherRuleSet
	}
	c.evaluationMetrics.RecordEvaluation(ruleSet, result, duration)
}

// RecordRuleFired records how many rules one evaluation fired.
func (c *Collector) RecordRuleFired(fired int) {
	if !c.enabled() {
		return
	}
	c.evaluationMetrics.RecordFired(fired)
}

// RegisterOpenSessions exposes a gauge reading fn on every scrape.
func (c *Collector) RegisterOpenSessions(fn func() int64) error {
	if c == nil {
		return nil
	}
	return c.registry.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: c.config.Namespace,
			Subsystem: c.config.Subsystem,
			Name:      "open_sessions",
			Help:      "Number of evaluation sessions opened and not yet disposed",
		},
		func() float64 { return float64(fn()) },
	))
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter caps the number of distinct label values a metric
// may take.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a limiter admitting at most maxCardinality
// distinct values.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether labelSet is already tracked or fits under the limit.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[labelSet]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
