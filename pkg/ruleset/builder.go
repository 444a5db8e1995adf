package ruleset

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/b3ckham/Orchestrator/pkg/rules"
	"github.com/b3ckham/Orchestrator/pkg/telemetry/metrics"
	"github.com/b3ckham/Orchestrator/pkg/telemetry/tracing"
)

// Builder compiles a repository snapshot into an artifact. It keeps no
// state between builds, so concurrent builds are independent.
type Builder struct {
	backend rules.Backend
	opts    Options
}

// NewBuilder creates a builder over backend.
func NewBuilder(backend rules.Backend, opts Options) *Builder {
	return &Builder{
		backend: backend,
		opts:    opts.withDefaults(),
	}
}

// BuildAll compiles every rule set in snapshot into one artifact. When any
// rule set fails the error is a *rules.BuildFailure.
func (b *Builder) BuildAll(ctx context.Context, snapshot map[string]string) (rules.Artifact, error) {
	names := make([]string, 0, len(snapshot))
	for name := range snapshot {
		names = append(names, name)
	}
	sort.Strings(names)

	ctx, span := b.opts.Tracer.Start(ctx, tracing.SpanBuild, tracing.RuleSets(names))
	defer span.End()

	start := time.Now()
	artifact, err := b.backend.Compile(ctx, snapshot)
	duration := time.Since(start)

	if err != nil {
		b.opts.Metrics.RecordBuild(metrics.ResultFailure, duration)

		var failure *rules.BuildFailure
		if errors.As(err, &failure) {
			span.SetAttributes(attribute.StringSlice(tracing.AttrFailed, failure.FailedRuleSets()))
		}
		tracing.SetError(span, err)
		return nil, err
	}
	if artifact == nil {
		b.opts.Metrics.RecordBuild(metrics.ResultFailure, duration)
		err := fmt.Errorf("backend returned no artifact: %w", rules.ErrNilArtifact)
		tracing.SetError(span, err)
		return nil, err
	}

	b.opts.Metrics.RecordBuild(metrics.ResultSuccess, duration)
	tracing.SetArtifactAttributes(span, artifact.ID(), artifact.Version())
	tracing.SetError(span, nil)
	return artifact, nil
}
