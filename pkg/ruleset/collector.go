package ruleset

import (
	"sync"

	"github.com/b3ckham/Orchestrator/pkg/rules"
)

// Collector gathers the consequences of fired rules for one evaluation.
// Reasons are kept in the order rules added them, duplicates included.
type Collector struct {
	mu      sync.Mutex
	matched bool
	outcome string
	reasons []string
}

var _ rules.ResultSink = (*Collector)(nil)

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{reasons: []string{}}
}

// SetMatch implements rules.ResultSink.
func (c *Collector) SetMatch(matched bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.matched = matched
}

// SetOutcome implements rules.ResultSink.
func (c *Collector) SetOutcome(outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcome = outcome
}

// AddReason implements rules.ResultSink.
func (c *Collector) AddReason(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reasons = append(c.reasons, reason)
}

// Outcome returns a copy of what has been collected so far.
func (c *Collector) Outcome() *EvaluationOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	reasons := make([]string, len(c.reasons))
	copy(reasons, c.reasons)
	return &EvaluationOutcome{
		Matched: c.matched,
		Outcome: c.outcome,
		Reasons: reasons,
		Facts:   map[string]any{},
	}
}
