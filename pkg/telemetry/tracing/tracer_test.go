package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/b3ckham/Orchestrator/pkg/config"
)

func newRecordingTracer(t *testing.T, ratio float64) (*Tracer, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tracer, err := New(
		&config.TracingConfig{Enabled: true, ServiceName: "rulehost-test", SampleRatio: ratio},
		WithSpanProcessor(recorder),
		WithGlobal(false),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = tracer.Shutdown(context.Background()) })
	return tracer, recorder
}

func TestNew_Disabled(t *testing.T) {
	tracer, err := New(&config.TracingConfig{ServiceName: "rulehost"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if tracer.Enabled() {
		t.Error("Enabled() = true, want false")
	}

	ctx, span := tracer.Start(context.Background(), SpanEvaluate)
	defer span.End()
	if span.SpanContext().IsValid() || TraceID(ctx) != "" {
		t.Error("disabled tracer produced a valid span")
	}
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("New(nil) error = nil, want error")
	}
	if _, err := New(&config.TracingConfig{Enabled: true, SampleRatio: 2}); err == nil {
		t.Error("New(ratio 2) error = nil, want error")
	}
}

func TestTracer_RecordsSpans(t *testing.T) {
	tracer, recorder := newRecordingTracer(t, 1)

	ctx, parent := tracer.Start(context.Background(), SpanDeploy, RuleSets([]string{"aml", "kyc"}))
	_, child := tracer.Start(ctx, SpanBuild)
	SetArtifactAttributes(child, "a-1", "v-1")
	SetError(child, errors.New("compilation failed"))
	child.End()
	SetError(parent, nil)
	parent.End()

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("ended spans = %d, want 2", len(spans))
	}
	build, deploy := spans[0], spans[1]
	if build.Name() != SpanBuild || deploy.Name() != SpanDeploy {
		t.Fatalf("span names = %q, %q", build.Name(), deploy.Name())
	}
	if build.Parent().SpanID() != deploy.SpanContext().SpanID() {
		t.Error("build span is not a child of the deploy span")
	}
	if build.Status().Code != codes.Error || build.Status().Description != "compilation failed" {
		t.Errorf("build status = %+v", build.Status())
	}
	if deploy.Status().Code != codes.Ok {
		t.Errorf("deploy status = %+v", deploy.Status())
	}
	if !hasAttr(build.Attributes(), attribute.String(AttrVersion, "v-1")) {
		t.Errorf("build attributes = %v", build.Attributes())
	}
	if !hasAttr(deploy.Attributes(), attribute.StringSlice(AttrRuleSets, []string{"aml", "kyc"})) {
		t.Errorf("deploy attributes = %v", deploy.Attributes())
	}
	if got := deploy.Resource().Attributes(); !hasAttr(got, attribute.String("service.name", "rulehost-test")) {
		t.Errorf("resource attributes = %v", got)
	}
}

func TestTracer_SampleRatioZero(t *testing.T) {
	tracer, recorder := newRecordingTracer(t, 0)

	_, span := tracer.Start(context.Background(), SpanEvaluate)
	span.End()
	if n := len(recorder.Ended()); n != 0 {
		t.Errorf("ended spans = %d, want 0 with ratio 0", n)
	}
}

func TestSetEvaluationAttributes(t *testing.T) {
	tracer, recorder := newRecordingTracer(t, 1)

	_, span := tracer.Start(context.Background(), SpanEvaluate)
	SetEvaluationAttributes(span, true, "REVIEW", 2)
	span.End()

	attrs := recorder.Ended()[0].Attributes()
	for _, want := range []attribute.KeyValue{
		attribute.Bool(AttrMatched, true),
		attribute.String(AttrOutcome, "REVIEW"),
		attribute.Int(AttrFired, 2),
	} {
		if !hasAttr(attrs, want) {
			t.Errorf("attributes %v missing %v", attrs, want)
		}
	}
}

func TestHTTPMiddleware(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	var got trace.SpanContext
	handler := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = trace.SpanContextFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/rules/evaluate", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got.TraceID().String() != "4bf92f3577b34da6a3ce929d0e0e4736" || !got.IsRemote() {
		t.Errorf("span context = %+v, want remote parent from traceparent", got)
	}
	if rec.Header().Get(TraceIDHeader) != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("%s = %q", TraceIDHeader, rec.Header().Get(TraceIDHeader))
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/rules/evaluate", nil))
	if got.IsValid() || rec.Header().Get(TraceIDHeader) != "" {
		t.Errorf("request without traceparent got span context %+v", got)
	}
}

func hasAttr(attrs []attribute.KeyValue, want attribute.KeyValue) bool {
	for _, a := range attrs {
		if a.Key == want.Key && a.Value.Emit() == want.Value.Emit() {
			return true
		}
	}
	return false
}
