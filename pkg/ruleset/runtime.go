package ruleset

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/b3ckham/Orchestrator/pkg/audit"
	"github.com/b3ckham/Orchestrator/pkg/facts"
	"github.com/b3ckham/Orchestrator/pkg/rules"
	"github.com/b3ckham/Orchestrator/pkg/telemetry/logging"
	"github.com/b3ckham/Orchestrator/pkg/telemetry/metrics"
	"github.com/b3ckham/Orchestrator/pkg/telemetry/tracing"
)

// EvaluationOutcome is the result of one evaluation. Facts echoes the
// supplied facts keyed by kind ("Member", "Wallet", "Compliance"); kinds
// that were not supplied are absent.
type EvaluationOutcome struct {
	Matched bool           `json:"isMatch"`
	Outcome string         `json:"outcome"`
	Reasons []string       `json:"reasons"`
	Facts   map[string]any `json:"facts"`
}

// Runtime evaluates facts against the artifact currently held by a Handle.
// Each call gets its own session and collector; calls never block each
// other or a concurrent swap.
type Runtime struct {
	backend rules.Backend
	handle  *Handle
	opts    Options
}

// NewRuntime creates a runtime over backend and handle.
func NewRuntime(backend rules.Backend, handle *Handle, opts Options) *Runtime {
	return &Runtime{
		backend: backend,
		handle:  handle,
		opts:    opts.withDefaults(),
	}
}

// Evaluate runs the rules of ruleSetName, or the default agenda group when
// ruleSetName is empty, against fc. It always returns an outcome: failures
// are logged, counted and audited, and produce an unmatched outcome that
// still echoes the supplied facts.
func (r *Runtime) Evaluate(ctx context.Context, ruleSetName string, fc *facts.FactContext) *EvaluationOutcome {
	start := time.Now()
	ctx = logging.WithRuleSet(ctx, ruleSetName)

	ctx, span := r.opts.Tracer.Start(ctx, tracing.SpanEvaluate,
		trace.WithAttributes(attribute.String(tracing.AttrRuleSet, ruleSetName)))
	defer span.End()

	if r.opts.EvaluationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.EvaluationTimeout)
		defer cancel()
	}

	echoed := echoFacts(fc)

	outcome, fired, artifact, err := r.run(ctx, ruleSetName, fc)
	duration := time.Since(start)

	result := metrics.ResultUnmatched
	if err != nil {
		r.opts.Logger.ErrorContext(ctx, "evaluation failed",
			"error", err,
			"facts", len(echoed),
			"duration_ms", duration.Milliseconds(),
		)
		outcome = &EvaluationOutcome{Reasons: []string{}}
		result = metrics.ResultError
		tracing.SetError(span, err)
	} else {
		if outcome.Matched {
			result = metrics.ResultMatched
		}
		tracing.SetEvaluationAttributes(span, outcome.Matched, outcome.Outcome, fired)
		r.opts.Logger.DebugContext(ctx, "evaluation completed",
			"matched", outcome.Matched,
			"outcome", outcome.Outcome,
			"fired", fired,
			"duration_ms", duration.Milliseconds(),
		)
	}
	outcome.Facts = echoed

	r.opts.Metrics.RecordEvaluation(ruleSetName, result, duration)
	r.opts.Metrics.RecordRuleFired(fired)

	event := &audit.Event{
		Type:      audit.EventEvaluate,
		RequestID: logging.GetRequestID(ctx),
		Timestamp: start,
		RuleSet:   ruleSetName,
		Success:   err == nil,
		Matched:   outcome.Matched,
		Outcome:   outcome.Outcome,
		Reasons:   outcome.Reasons,
		Duration:  duration,
	}
	if artifact != nil {
		event.ArtifactID = artifact.ID()
		event.Version = artifact.Version()
	}
	if err != nil {
		event.Error = err.Error()
	}
	r.opts.record(context.WithoutCancel(ctx), event)

	return outcome
}

// run does the session work of one evaluation. The session is disposed on
// every path, panics included.
func (r *Runtime) run(ctx context.Context, ruleSetName string, fc *facts.FactContext) (outcome *EvaluationOutcome, fired int, artifact rules.Artifact, err error) {
	defer func() {
		if p := recover(); p != nil {
			outcome = nil
			err = fmt.Errorf("evaluation panicked: %v", p)
		}
	}()

	artifact = r.handle.Current()
	if artifact == nil {
		return nil, 0, nil, ErrNoArtifact
	}

	collector := NewCollector()
	session, err := r.backend.OpenSession(ctx, artifact, collector)
	if err != nil {
		return nil, 0, artifact, fmt.Errorf("failed to open session: %w", err)
	}
	defer session.Dispose()

	for _, fact := range fc.Present() {
		if err := session.Insert(fact); err != nil {
			return nil, 0, artifact, fmt.Errorf("failed to insert %s: %w", fact.Kind(), err)
		}
	}

	if ruleSetName != "" {
		if err := session.Focus(ruleSetName); err != nil {
			return nil, 0, artifact, fmt.Errorf("failed to focus %q: %w", ruleSetName, err)
		}
	}

	fired, err = session.FireAll(ctx)
	if err != nil {
		return nil, fired, artifact, fmt.Errorf("failed to fire rules: %w", err)
	}

	return collector.Outcome(), fired, artifact, nil
}

// echoFacts keys the supplied facts by kind.
func echoFacts(fc *facts.FactContext) map[string]any {
	echoed := make(map[string]any)
	for _, fact := range fc.Present() {
		echoed[string(fact.Kind())] = fact
	}
	return echoed
}
