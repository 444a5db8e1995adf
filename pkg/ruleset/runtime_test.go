package ruleset

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/b3ckham/Orchestrator/pkg/audit"
	"github.com/b3ckham/Orchestrator/pkg/facts"
	"github.com/b3ckham/Orchestrator/pkg/telemetry/logging"
	"github.com/b3ckham/Orchestrator/pkg/telemetry/tracing"
)

func newFakeRuntime(backend *fakeBackend, opts Options) *Runtime {
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}
	return NewRuntime(backend, NewHandle(fakeArtifact{id: "a1"}), opts)
}

func allFacts() *facts.FactContext {
	return &facts.FactContext{
		Member:     facts.NewMember(map[string]any{"id": "m-1"}),
		Wallet:     &facts.Wallet{Balance: facts.MustDecimal("12.50"), Currency: facts.CurrencyUSD, Status: facts.WalletActive},
		Compliance: &facts.Compliance{RiskLevel: facts.RiskLow, KYCStatus: facts.KYCVerified},
	}
}

func TestRuntime_Evaluate(t *testing.T) {
	backend := &fakeBackend{}
	rt := newFakeRuntime(backend, Options{})

	out := rt.Evaluate(context.Background(), "kyc", allFacts())
	if !out.Matched {
		t.Errorf("Matched = false, want true")
	}
	if diff := cmp.Diff([]string{"Compliance", "Member", "Wallet"}, sortedKeys(out.Facts)); diff != "" {
		t.Errorf("echoed facts mismatch (-want +got):\n%s", diff)
	}

	s := backend.sessions[0]
	if diff := cmp.Diff([]facts.Kind{facts.KindMember, facts.KindWallet, facts.KindCompliance}, s.inserted); diff != "" {
		t.Errorf("inserted kinds mismatch (-want +got):\n%s", diff)
	}
	if s.focus != "kyc" {
		t.Errorf("focus = %q, want kyc", s.focus)
	}
	if !s.disposed.Load() {
		t.Error("session was not disposed")
	}
}

func TestRuntime_NoFocusForEmptyName(t *testing.T) {
	backend := &fakeBackend{}
	rt := newFakeRuntime(backend, Options{})

	rt.Evaluate(context.Background(), "", allFacts())
	if backend.sessions[0].focus != "" {
		t.Errorf("focus = %q, want none", backend.sessions[0].focus)
	}
}

func TestRuntime_Failures(t *testing.T) {
	tests := []struct {
		name    string
		backend *fakeBackend
		opened  int64
	}{
		{name: "open session", backend: &fakeBackend{openErr: errors.New("no session")}, opened: 0},
		{name: "fire error", backend: &fakeBackend{fireErr: errFire}, opened: 1},
		{name: "panic", backend: &fakeBackend{panicOnFire: true}, opened: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &auditLog{}
			rt := newFakeRuntime(tt.backend, Options{Auditor: log})
			ctx := logging.WithRequestID(context.Background(), "req-7")

			out := rt.Evaluate(ctx, "kyc", allFacts())

			if out.Matched || out.Outcome != "" {
				t.Errorf("outcome = %+v, want unmatched", out)
			}
			if out.Reasons == nil || len(out.Reasons) != 0 {
				t.Errorf("Reasons = %#v, want empty non-nil", out.Reasons)
			}
			if len(out.Facts) != 3 {
				t.Errorf("echoed facts = %d, want 3", len(out.Facts))
			}
			if got := tt.backend.opened.Load(); got != tt.opened {
				t.Errorf("opened = %d, want %d", got, tt.opened)
			}
			if got := tt.backend.disposed.Load(); got != tt.opened {
				t.Errorf("disposed = %d, want %d", got, tt.opened)
			}

			events := log.byType(audit.EventEvaluate)
			if len(events) != 1 {
				t.Fatalf("audit events = %d, want 1", len(events))
			}
			if e := events[0]; e.Success || e.Error == "" || e.RequestID != "req-7" || e.RuleSet != "kyc" {
				t.Errorf("audit event = %+v", e)
			}
		})
	}
}

func TestRuntime_NoArtifact(t *testing.T) {
	rt := NewRuntime(&fakeBackend{}, NewHandle(nil), Options{Logger: discardLogger()})

	out := rt.Evaluate(context.Background(), "kyc", allFacts())
	if out.Matched || len(out.Facts) != 3 {
		t.Errorf("outcome = %+v", out)
	}
}

func TestRuntime_Timeout(t *testing.T) {
	backend := &fakeBackend{blockOnFire: true}
	rt := newFakeRuntime(backend, Options{EvaluationTimeout: 20 * time.Millisecond})

	start := time.Now()
	out := rt.Evaluate(context.Background(), "kyc", allFacts())
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("Evaluate() took %v", elapsed)
	}
	if out.Matched {
		t.Error("timed out evaluation matched")
	}
	if backend.disposed.Load() != 1 {
		t.Error("session was not disposed after timeout")
	}
}

func TestRuntime_Cancelled(t *testing.T) {
	backend := &fakeBackend{blockOnFire: true}
	rt := newFakeRuntime(backend, Options{EvaluationTimeout: -1})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan *EvaluationOutcome)
	go func() {
		done <- rt.Evaluate(ctx, "kyc", allFacts())
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case out := <-done:
		if out.Matched {
			t.Error("cancelled evaluation matched")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Evaluate() did not return after cancellation")
	}
	if backend.disposed.Load() != 1 {
		t.Error("session was not disposed after cancellation")
	}
}

func TestRuntime_Spans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer provider.Shutdown(context.Background())

	rt := newFakeRuntime(&fakeBackend{fireErr: errFire}, Options{Tracer: provider.Tracer("test")})
	rt.Evaluate(context.Background(), "kyc", allFacts())

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	if spans[0].Name() != tracing.SpanEvaluate {
		t.Errorf("span name = %q", spans[0].Name())
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("span status = %v, want Error", spans[0].Status().Code)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
