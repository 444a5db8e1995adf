// Package tracing provides OpenTelemetry tracing for deploys, builds and
// evaluations.
//
// New builds an SDK tracer provider when tracing is enabled and a no-op
// tracer otherwise. Exporters are supplied by the host as span processors:
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing,
//		tracing.WithSpanProcessor(sdktrace.NewBatchSpanProcessor(exporter)))
//	defer tracer.Shutdown(ctx)
//
//	ctx, span := tracer.Start(ctx, tracing.SpanEvaluate)
//	defer span.End()
//
// HTTPMiddleware joins incoming W3C traceparent headers so spans started by
// handlers continue the caller's trace.
package tracing
