package ruleset

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/b3ckham/Orchestrator/pkg/audit"
	"github.com/b3ckham/Orchestrator/pkg/telemetry/metrics"
)

// Default option values.
const (
	DefaultDeployRetries     = 3
	DefaultEvaluationTimeout = 5 * time.Second
)

// Auditor records audit events. *recorder.Recorder satisfies it.
type Auditor interface {
	Record(ctx context.Context, event *audit.Event) error
}

// Options carries the collaborators shared by the builder, runtime and
// service. Every field is optional.
type Options struct {
	// Logger receives operational logs. Default: slog.Default()
	Logger *slog.Logger

	// Metrics records deploy and evaluation metrics. Nil records nothing.
	Metrics *metrics.Collector

	// Tracer starts spans for deploys, builds and evaluations.
	// Default: no-op
	Tracer trace.Tracer

	// Auditor receives deploy and evaluation events. Nil disables auditing.
	Auditor Auditor

	// DeployRetries is the number of optimistic build attempts before the
	// final attempt under the commit lock.
	// Default: 3
	DeployRetries int

	// EvaluationTimeout bounds one evaluation. Negative disables the bound.
	// Default: 5s
	EvaluationTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Tracer == nil {
		o.Tracer = noop.NewTracerProvider().Tracer("ruleset")
	}
	if o.DeployRetries <= 0 {
		o.DeployRetries = DefaultDeployRetries
	}
	if o.EvaluationTimeout == 0 {
		o.EvaluationTimeout = DefaultEvaluationTimeout
	}
	return o
}

// record hands an event to the auditor, if any. Audit failures are logged
// and never fail the operation being audited.
func (o Options) record(ctx context.Context, event *audit.Event) {
	if o.Auditor == nil {
		return
	}
	if err := o.Auditor.Record(ctx, event); err != nil {
		o.Logger.WarnContext(ctx, "failed to record audit event",
			"type", event.Type,
			"rule_set", event.RuleSet,
			"error", err,
		)
	}
}
