package ruleset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/b3ckham/Orchestrator/pkg/audit"
	"github.com/b3ckham/Orchestrator/pkg/audit/recorder"
	"github.com/b3ckham/Orchestrator/pkg/facts"
	"github.com/b3ckham/Orchestrator/pkg/rules"
	"github.com/b3ckham/Orchestrator/pkg/telemetry/logging"
	"github.com/b3ckham/Orchestrator/pkg/telemetry/metrics"
	"github.com/b3ckham/Orchestrator/pkg/telemetry/tracing"
)

// DeployResult describes a committed deploy.
type DeployResult struct {
	// RuleSets are the rule sets this deploy submitted, sorted.
	RuleSets []string

	// ArtifactID and Version identify the artifact that became active.
	ArtifactID string
	Version    string

	// ActiveRuleSets is the repository size after the commit.
	ActiveRuleSets int

	// Attempts is the number of builds the deploy needed.
	Attempts int
}

// Message returns the status line reported to deploy callers.
func (r *DeployResult) Message() string {
	return fmt.Sprintf("RuleSet %s Deployed Successfully. Active Rules: %d",
		strings.Join(r.RuleSets, ", "), r.ActiveRuleSets)
}

// ActiveRuleSets lists the deployed rule sets and the artifact built from them.
type ActiveRuleSets struct {
	Count      int      `json:"count"`
	RuleSets   []string `json:"ruleSets"`
	ArtifactID string   `json:"artifactId,omitempty"`
	Version    string   `json:"version,omitempty"`
}

// ArtifactInfo describes the active artifact.
type ArtifactInfo struct {
	ID        string    `json:"id"`
	Version   string    `json:"version"`
	BuiltAt   time.Time `json:"builtAt"`
	RuleSets  []string  `json:"ruleSets"`
	RuleCount int       `json:"ruleCount"`
}

// Service is the rule host: it owns the repository, the active artifact
// and the runtime, and serializes commits so that the active artifact is
// always the build of the whole repository.
type Service struct {
	repository *Repository
	builder    *Builder
	handle     *Handle
	runtime    *Runtime
	opts       Options
	logger     *slog.Logger

	// commitMu guards (repository put, handle swap). Evaluations never take it.
	commitMu sync.Mutex
}

// NewService creates a service with an empty repository. The active
// artifact starts as the build of the empty corpus.
func NewService(ctx context.Context, backend rules.Backend, opts Options) (*Service, error) {
	if backend == nil {
		return nil, errors.New("rule backend is nil")
	}
	opts = opts.withDefaults()

	builder := NewBuilder(backend, opts)
	initial, err := builder.BuildAll(ctx, map[string]string{})
	if err != nil {
		return nil, fmt.Errorf("failed to build empty corpus: %w", err)
	}
	handle := NewHandle(initial)

	opts.Metrics.SetActiveRuleSets(0)

	return &Service{
		repository: NewRepository(),
		builder:    builder,
		handle:     handle,
		runtime:    NewRuntime(backend, handle, opts),
		opts:       opts,
		logger:     opts.Logger.With("component", "ruleset.service"),
	}, nil
}

// Deploy adds or replaces one rule set. On a compilation failure the error
// is a *CompilationError and neither the repository nor the active
// artifact changes.
func (s *Service) Deploy(ctx context.Context, name, source string) (*DeployResult, error) {
	return s.DeployAll(ctx, map[string]string{name: source})
}

// DeployAll adds or replaces several rule sets with a single build. Either
// all of them are committed or none is.
func (s *Service) DeployAll(ctx context.Context, candidates map[string]string) (*DeployResult, error) {
	names := make([]string, 0, len(candidates))
	for name := range candidates {
		if name == "" {
			return nil, &RepositoryError{
				Operation: "deploy",
				Message:   "rule set name cannot be empty",
			}
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, &RepositoryError{
			Operation: "deploy",
			Message:   "no rule sets to deploy",
		}
	}
	sort.Strings(names)

	start := time.Now()
	ctx = logging.WithRuleSet(ctx, strings.Join(names, ","))
	ctx, span := s.opts.Tracer.Start(ctx, tracing.SpanDeploy, tracing.RuleSets(names))
	defer span.End()

	result, err := s.deploy(ctx, span, names, candidates)
	duration := time.Since(start)

	if err != nil {
		s.opts.Metrics.RecordDeploy(metrics.ResultFailure, len(names))
		tracing.SetError(span, err)
		s.logger.WarnContext(ctx, "deploy rejected",
			"rule_sets", names,
			"error", err,
			"duration_ms", duration.Milliseconds(),
		)
	} else {
		s.opts.Metrics.RecordDeploy(metrics.ResultSuccess, len(names))
		s.opts.Metrics.SetActiveRuleSets(result.ActiveRuleSets)
		tracing.SetArtifactAttributes(span, result.ArtifactID, result.Version)
		tracing.SetError(span, nil)
		s.logger.InfoContext(ctx, "deploy committed",
			"rule_sets", names,
			"artifact_id", result.ArtifactID,
			"version", result.Version,
			"active_rule_sets", result.ActiveRuleSets,
			"attempts", result.Attempts,
			"duration_ms", duration.Milliseconds(),
		)
	}

	s.auditDeploy(ctx, names, candidates, result, err, start, duration)
	return result, err
}

// deploy builds the candidate corpus and commits it. Builds run without the
// commit lock; if another deploy committed in the meantime the snapshot is
// stale and the build is redone. After DeployRetries stale attempts the
// final build runs under the lock and cannot be overtaken.
func (s *Service) deploy(ctx context.Context, span trace.Span, names []string, candidates map[string]string) (*DeployResult, error) {
	for attempt := 1; attempt <= s.opts.DeployRetries; attempt++ {
		span.SetAttributes(attribute.Int(tracing.AttrAttempt, attempt))

		snapshot, revision := s.repository.SnapshotRevision()
		artifact, err := s.build(ctx, snapshot, candidates)
		if err != nil {
			return nil, err
		}

		s.commitMu.Lock()
		if s.repository.Revision() == revision {
			result := s.commit(names, candidates, artifact, attempt)
			s.commitMu.Unlock()
			return result, nil
		}
		s.commitMu.Unlock()

		s.opts.Metrics.RecordDeployRetry()
		s.logger.DebugContext(ctx, "repository changed during build, rebuilding",
			"attempt", attempt,
		)
	}

	attempt := s.opts.DeployRetries + 1
	span.SetAttributes(attribute.Int(tracing.AttrAttempt, attempt))

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	artifact, err := s.build(ctx, s.repository.Snapshot(), candidates)
	if err != nil {
		return nil, err
	}
	return s.commit(names, candidates, artifact, attempt), nil
}

// build compiles snapshot overlaid with candidates.
func (s *Service) build(ctx context.Context, snapshot, candidates map[string]string) (rules.Artifact, error) {
	for name, source := range candidates {
		snapshot[name] = source
	}

	artifact, err := s.builder.BuildAll(ctx, snapshot)
	if err != nil {
		var failure *rules.BuildFailure
		if errors.As(err, &failure) {
			names := make([]string, 0, len(candidates))
			for name := range candidates {
				names = append(names, name)
			}
			sort.Strings(names)
			return nil, &CompilationError{
				RuleSet: strings.Join(names, ", "),
				Failure: failure,
			}
		}
		return nil, fmt.Errorf("build failed: %w", err)
	}
	return artifact, nil
}

// commit must be called with commitMu held.
func (s *Service) commit(names []string, candidates map[string]string, artifact rules.Artifact, attempts int) *DeployResult {
	for _, name := range names {
		// Names were checked non-empty by DeployAll.
		_ = s.repository.Put(name, candidates[name])
	}
	if _, err := s.handle.Swap(artifact); err != nil {
		// BuildAll never returns a nil artifact without an error.
		panic(fmt.Sprintf("swap rejected a built artifact: %v", err))
	}

	return &DeployResult{
		RuleSets:       names,
		ArtifactID:     artifact.ID(),
		Version:        artifact.Version(),
		ActiveRuleSets: s.repository.Size(),
		Attempts:       attempts,
	}
}

func (s *Service) auditDeploy(ctx context.Context, names []string, candidates map[string]string, result *DeployResult, err error, start time.Time, duration time.Duration) {
	var diagnostics []string
	var compileErr *CompilationError
	if errors.As(err, &compileErr) {
		for _, d := range compileErr.Diagnostics() {
			diagnostics = append(diagnostics, d.String())
		}
	}

	for _, name := range names {
		event := &audit.Event{
			Type:        audit.EventDeploy,
			RequestID:   logging.GetRequestID(ctx),
			Timestamp:   start,
			RuleSet:     name,
			SourceHash:  recorder.HashSource(candidates[name]),
			Success:     err == nil,
			Diagnostics: diagnostics,
			Duration:    duration,
		}
		if result != nil {
			event.ArtifactID = result.ArtifactID
			event.Version = result.Version
		}
		if err != nil {
			event.Error = err.Error()
		}
		s.opts.record(context.WithoutCancel(ctx), event)
	}
}

// ListActive returns the deployed rule-set names in sorted order.
func (s *Service) ListActive() ActiveRuleSets {
	names := s.repository.Names()
	active := ActiveRuleSets{
		Count:    len(names),
		RuleSets: names,
	}
	if artifact := s.handle.Current(); artifact != nil {
		active.ArtifactID = artifact.ID()
		active.Version = artifact.Version()
	}
	return active
}

// Evaluate runs facts through the active artifact. See Runtime.Evaluate.
func (s *Service) Evaluate(ctx context.Context, ruleSetName string, fc *facts.FactContext) *EvaluationOutcome {
	return s.runtime.Evaluate(ctx, ruleSetName, fc)
}

// Version describes the active artifact.
func (s *Service) Version() ArtifactInfo {
	artifact := s.handle.Current()
	if artifact == nil {
		return ArtifactInfo{RuleSets: []string{}}
	}
	return ArtifactInfo{
		ID:        artifact.ID(),
		Version:   artifact.Version(),
		BuiltAt:   artifact.BuiltAt(),
		RuleSets:  artifact.RuleSets(),
		RuleCount: artifact.RuleCount(),
	}
}

// Deployed reports whether an artifact is active.
func (s *Service) Deployed() bool {
	return s.handle.Current() != nil
}

// Source returns the deployed source of a rule set.
func (s *Service) Source(name string) (string, bool) {
	return s.repository.Get(name)
}

// LoadBaseline deploys every rule-set file under dir with a single build.
// An empty directory deploys nothing and returns a nil result.
func (s *Service) LoadBaseline(ctx context.Context, dir string, config *LoaderConfig) (*DeployResult, error) {
	sources, err := LoadDirectory(dir, config)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		s.logger.InfoContext(ctx, "baseline directory has no rule sets", "path", dir)
		return nil, nil
	}
	return s.DeployAll(ctx, sources)
}
