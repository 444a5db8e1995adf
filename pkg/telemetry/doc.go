// Package telemetry groups the observability packages of the rule host.
//
// # Components
//
//   - logging: slog construction with PII redaction and request-scoped fields
//   - metrics: Prometheus collectors for builds, deploys and evaluations
//   - tracing: OpenTelemetry spans around deploy, build and evaluate
//   - health: liveness, readiness and version endpoints
//
// # Usage
//
//	logger, err := logging.New(logging.ConfigFrom(cfg.Telemetry.Logging))
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
//	defer tracer.Shutdown(ctx)
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.RegisterCheck("artifact", health.ArtifactCheck(svc.Deployed))
//
// Request IDs and rule-set names placed in the context with
// logging.WithRequestID and logging.WithRuleSet are added to every record
// logged through a context-aware call, together with the active trace and
// span IDs.
package telemetry
