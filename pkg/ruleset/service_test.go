package ruleset

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/b3ckham/Orchestrator/pkg/audit"
	"github.com/b3ckham/Orchestrator/pkg/config"
	"github.com/b3ckham/Orchestrator/pkg/facts"
	"github.com/b3ckham/Orchestrator/pkg/rules"
	"github.com/b3ckham/Orchestrator/pkg/rules/engine"
	"github.com/b3ckham/Orchestrator/pkg/telemetry/metrics"
)

func TestNewService_StartsEmpty(t *testing.T) {
	svc, _ := newTestService(t, Options{})

	active := svc.ListActive()
	if active.Count != 0 || len(active.RuleSets) != 0 {
		t.Errorf("ListActive() = %+v, want empty", active)
	}
	if !svc.Deployed() {
		t.Error("Deployed() = false, want the empty artifact to be active")
	}

	out := svc.Evaluate(context.Background(), "", highRiskPending())
	if out.Matched || len(out.Reasons) != 0 {
		t.Errorf("Evaluate() on empty corpus = %+v", out)
	}
}

func TestNewService_NilBackend(t *testing.T) {
	if _, err := NewService(context.Background(), nil, Options{}); err == nil {
		t.Error("NewService(nil) error = nil")
	}
}

func TestService_Deploy(t *testing.T) {
	svc, _ := newTestService(t, Options{})

	result := mustDeploy(t, svc, "kyc", kycRules)
	if got, want := result.Message(), "RuleSet kyc Deployed Successfully. Active Rules: 1"; got != want {
		t.Errorf("Message() = %q, want %q", got, want)
	}
	if result.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", result.Attempts)
	}

	result = mustDeploy(t, svc, "wallet", walletRules)
	if got, want := result.Message(), "RuleSet wallet Deployed Successfully. Active Rules: 2"; got != want {
		t.Errorf("Message() = %q, want %q", got, want)
	}

	active := svc.ListActive()
	if diff := cmp.Diff([]string{"kyc", "wallet"}, active.RuleSets); diff != "" {
		t.Errorf("ListActive() mismatch (-want +got):\n%s", diff)
	}
	if active.ArtifactID != result.ArtifactID || active.Version != result.Version {
		t.Errorf("ListActive() artifact = %s/%s, want %s/%s", active.ArtifactID, active.Version, result.ArtifactID, result.Version)
	}
	if src, ok := svc.Source("kyc"); !ok || src != kycRules {
		t.Errorf("Source(kyc) = %q, %v", src, ok)
	}
}

// Every successful deploy leaves the active artifact built from exactly the
// rule sets in the repository.
func TestService_FullCorpus(t *testing.T) {
	svc, _ := newTestService(t, Options{})

	steps := []struct {
		name   string
		source string
		ok     bool
	}{
		{"kyc", kycRules, true},
		{"wallet", walletRules, true},
		{"kyc", kycTypo, false},
		{"ordered", orderedRules, true},
		{"broken", "rules: [", false},
		{"kyc", kycRules, true},
	}

	for i, step := range steps {
		_, err := svc.Deploy(context.Background(), step.name, step.source)
		if (err == nil) != step.ok {
			t.Fatalf("step %d: Deploy(%s) error = %v, want ok=%v", i, step.name, err, step.ok)
		}

		version := svc.Version()
		if diff := cmp.Diff(svc.ListActive().RuleSets, version.RuleSets); diff != "" {
			t.Errorf("step %d: artifact rule sets differ from repository (-repo +artifact):\n%s", i, diff)
		}
		if version.RuleCount != 4 && i >= 3 {
			t.Errorf("step %d: RuleCount = %d, want 4", i, version.RuleCount)
		}
	}
}

func TestService_InvalidDeployLeavesStateUntouched(t *testing.T) {
	log := &auditLog{}
	svc, _ := newTestService(t, Options{Auditor: log})
	mustDeploy(t, svc, "kyc", kycRules)

	before := svc.ListActive()
	beforeVersion := svc.Version()

	_, err := svc.Deploy(context.Background(), "kyc", kycTypo)

	var compileErr *CompilationError
	if !errors.As(err, &compileErr) {
		t.Fatalf("Deploy() error = %v, want *CompilationError", err)
	}
	var failure *rules.BuildFailure
	if !errors.As(err, &failure) {
		t.Errorf("CompilationError does not unwrap to *rules.BuildFailure")
	}
	if !strings.HasPrefix(err.Error(), "Compilation error: ") || !strings.Contains(err.Error(), "Hihg") {
		t.Errorf("error message = %q", err.Error())
	}
	if diff := cmp.Diff([]string{"kyc"}, failure.FailedRuleSets()); diff != "" {
		t.Errorf("FailedRuleSets() mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff(before, svc.ListActive()); diff != "" {
		t.Errorf("ListActive() changed (-before +after):\n%s", diff)
	}
	if diff := cmp.Diff(beforeVersion, svc.Version()); diff != "" {
		t.Errorf("active artifact changed (-before +after):\n%s", diff)
	}
	if src, _ := svc.Source("kyc"); src != kycRules {
		t.Error("repository holds the rejected source")
	}

	// The prior artifact keeps serving.
	out := svc.Evaluate(context.Background(), "kyc", highRiskPending())
	if !out.Matched || out.Outcome != "REVIEW" {
		t.Errorf("Evaluate() after rejected deploy = %+v", out)
	}

	deploys := log.byType(audit.EventDeploy)
	if len(deploys) != 2 {
		t.Fatalf("deploy audit events = %d, want 2", len(deploys))
	}
	rejected := deploys[1]
	if rejected.Success || len(rejected.Diagnostics) != 1 || rejected.SourceHash == "" || rejected.ArtifactID != "" {
		t.Errorf("rejected deploy event = %+v", rejected)
	}
}

func TestService_DeployEmptyName(t *testing.T) {
	svc, _ := newTestService(t, Options{})

	_, err := svc.Deploy(context.Background(), "", kycRules)
	var repoErr *RepositoryError
	if !errors.As(err, &repoErr) {
		t.Fatalf("Deploy(\"\") error = %v, want *RepositoryError", err)
	}
	if svc.ListActive().Count != 0 {
		t.Error("rejected deploy changed the repository")
	}

	if _, err := svc.DeployAll(context.Background(), nil); !errors.As(err, &repoErr) {
		t.Errorf("DeployAll(nil) error = %v, want *RepositoryError", err)
	}
}

func TestService_IdempotentRedeploy(t *testing.T) {
	svc, _ := newTestService(t, Options{})

	first := mustDeploy(t, svc, "kyc", kycRules)
	out1 := svc.Evaluate(context.Background(), "kyc", highRiskPending())

	second := mustDeploy(t, svc, "kyc", kycRules)
	out2 := svc.Evaluate(context.Background(), "kyc", highRiskPending())

	if first.ArtifactID == second.ArtifactID {
		t.Error("redeploy did not build a new artifact")
	}
	if first.Version != second.Version {
		t.Errorf("redeploy changed version %q -> %q", first.Version, second.Version)
	}
	if second.ActiveRuleSets != 1 {
		t.Errorf("ActiveRuleSets = %d, want 1", second.ActiveRuleSets)
	}
	if diff := cmp.Diff(out1, out2); diff != "" {
		t.Errorf("redeploy changed behaviour (-first +second):\n%s", diff)
	}
}

func TestService_KYCScenario(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	mustDeploy(t, svc, "kyc", kycRules)

	out := svc.Evaluate(context.Background(), "kyc", highRiskPending())
	want := &EvaluationOutcome{
		Matched: true,
		Outcome: "REVIEW",
		Reasons: []string{"high-risk-pending"},
		Facts: map[string]any{
			"Compliance": &facts.Compliance{RiskLevel: facts.RiskHigh, KYCStatus: facts.KYCPending},
		},
	}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("Evaluate() mismatch (-want +got):\n%s", diff)
	}

	verified := &facts.FactContext{
		Compliance: &facts.Compliance{RiskLevel: facts.RiskHigh, KYCStatus: facts.KYCVerified},
	}
	if out := svc.Evaluate(context.Background(), "kyc", verified); out.Matched {
		t.Errorf("verified member matched: %+v", out)
	}
}

func TestService_ReasonOrdering(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	mustDeploy(t, svc, "ordered", orderedRules)

	fc := &facts.FactContext{Member: facts.NewMember(map[string]any{"id": "m-1"})}
	out := svc.Evaluate(context.Background(), "ordered", fc)
	if diff := cmp.Diff([]string{"A", "B"}, out.Reasons); diff != "" {
		t.Errorf("Reasons mismatch (-want +got):\n%s", diff)
	}
}

func TestService_AbsentFact(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	mustDeploy(t, svc, "wallet", walletRules)

	out := svc.Evaluate(context.Background(), "wallet", highRiskPending())
	if out.Matched {
		t.Errorf("rule over an absent Wallet matched: %+v", out)
	}
	if _, ok := out.Facts["Wallet"]; ok {
		t.Error("absent Wallet was echoed")
	}
	if _, ok := out.Facts["Member"]; ok {
		t.Error("absent Member was echoed")
	}
	if _, ok := out.Facts["Compliance"]; !ok {
		t.Error("supplied Compliance was not echoed")
	}

	out = svc.Evaluate(context.Background(), "wallet", nil)
	if out.Matched || len(out.Facts) != 0 {
		t.Errorf("Evaluate(nil facts) = %+v", out)
	}
}

func TestService_UnknownPartition(t *testing.T) {
	log := &auditLog{}
	svc, _ := newTestService(t, Options{Auditor: log})
	mustDeploy(t, svc, "kyc", kycRules)

	out := svc.Evaluate(context.Background(), "does-not-exist", highRiskPending())
	if out.Matched || out.Outcome != "" || len(out.Reasons) != 0 {
		t.Errorf("Evaluate(unknown) = %+v, want unmatched", out)
	}

	evals := log.byType(audit.EventEvaluate)
	if len(evals) != 1 || !evals[0].Success {
		t.Errorf("evaluate audit events = %+v, want one successful event", evals)
	}
}

func TestService_DefaultGroup(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	mainRules := strings.ReplaceAll(walletRules, "    agenda_group: wallet\n", "")
	mustDeploy(t, svc, "main", mainRules)
	mustDeploy(t, svc, "kyc", kycRules)

	fc := &facts.FactContext{
		Wallet:     &facts.Wallet{Balance: facts.MustDecimal("10"), Currency: facts.CurrencyCNY, Status: facts.WalletLocked},
		Compliance: &facts.Compliance{RiskLevel: facts.RiskHigh, KYCStatus: facts.KYCPending},
	}
	out := svc.Evaluate(context.Background(), "", fc)
	if out.Outcome != "BLOCK" {
		t.Errorf("Evaluate(\"\") outcome = %q, want BLOCK from the default group only", out.Outcome)
	}
	if diff := cmp.Diff([]string{"wallet-locked"}, out.Reasons); diff != "" {
		t.Errorf("Reasons mismatch (-want +got):\n%s", diff)
	}
}

func TestService_LoadBaseline(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "kyc.yaml", kycRules)
	writeFile(t, dir, "nested/wallet.yml", walletRules)

	svc, _ := newTestService(t, Options{})
	result, err := svc.LoadBaseline(context.Background(), dir, nil)
	if err != nil {
		t.Fatalf("LoadBaseline() error = %v", err)
	}
	if diff := cmp.Diff([]string{"kyc", "wallet"}, result.RuleSets); diff != "" {
		t.Errorf("RuleSets mismatch (-want +got):\n%s", diff)
	}
	if got, want := result.Message(), "RuleSet kyc, wallet Deployed Successfully. Active Rules: 2"; got != want {
		t.Errorf("Message() = %q, want %q", got, want)
	}

	empty, err := svc.LoadBaseline(context.Background(), t.TempDir(), nil)
	if err != nil || empty != nil {
		t.Errorf("LoadBaseline(empty) = %v, %v; want nil, nil", empty, err)
	}
}

// racingBackend lets a test commit another deploy while a build is running.
type racingBackend struct {
	*engine.Backend
	armed  atomic.Bool
	during func()
}

func (b *racingBackend) Compile(ctx context.Context, sources map[string]string) (rules.Artifact, error) {
	if b.armed.CompareAndSwap(true, false) {
		b.during()
	}
	return b.Backend.Compile(ctx, sources)
}

func TestService_StaleSnapshotRebuilds(t *testing.T) {
	for _, retries := range []int{1, 3} {
		t.Run(fmt.Sprintf("retries=%d", retries), func(t *testing.T) {
			collector := metrics.NewCollector(&config.MetricsConfig{Enabled: true, Namespace: "test", Subsystem: "rules"}, nil)
			backend := &racingBackend{Backend: engine.New(nil, discardLogger())}
			svc, err := NewService(context.Background(), backend, Options{
				Logger:        discardLogger(),
				Metrics:       collector,
				DeployRetries: retries,
			})
			if err != nil {
				t.Fatalf("NewService() error = %v", err)
			}

			backend.during = func() {
				mustDeploy(t, svc, "wallet", walletRules)
			}
			backend.armed.Store(true)

			result := mustDeploy(t, svc, "kyc", kycRules)
			if result.Attempts != 2 {
				t.Errorf("Attempts = %d, want 2", result.Attempts)
			}
			if diff := cmp.Diff([]string{"kyc", "wallet"}, svc.Version().RuleSets); diff != "" {
				t.Errorf("active artifact lost a concurrent deploy (-want +got):\n%s", diff)
			}

			expected := `
# HELP test_rules_deploy_retries_total Deploy attempts discarded because another deploy committed first
# TYPE test_rules_deploy_retries_total counter
test_rules_deploy_retries_total 1
`
			if err := testutil.GatherAndCompare(collector.Registry(), strings.NewReader(expected), "test_rules_deploy_retries_total"); err != nil {
				t.Errorf("deploy_retries_total: %v", err)
			}
		})
	}
}

func TestService_ConcurrentDeployAndEvaluate(t *testing.T) {
	svc, backend := newTestService(t, Options{})
	mustDeploy(t, svc, "kyc", kycRules)

	const deployers = 8
	var wg sync.WaitGroup
	stop := make(chan struct{})
	var evaluations atomic.Int64

	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				out := svc.Evaluate(context.Background(), "kyc", highRiskPending())
				if !out.Matched || out.Outcome != "REVIEW" {
					t.Errorf("Evaluate() during deploys = %+v", out)
					return
				}
				evaluations.Add(1)
			}
		}()
	}

	var deployWG sync.WaitGroup
	for i := range deployers {
		deployWG.Add(1)
		go func() {
			defer deployWG.Done()
			name := fmt.Sprintf("wallet-%d", i)
			if _, err := svc.Deploy(context.Background(), name, walletRules); err != nil {
				t.Errorf("Deploy(%s) error = %v", name, err)
			}
			if i%2 == 0 {
				if _, err := svc.Deploy(context.Background(), "kyc", kycTypo); err == nil {
					t.Error("invalid deploy succeeded")
				}
			}
		}()
	}
	deployWG.Wait()
	close(stop)
	wg.Wait()

	active := svc.ListActive()
	if active.Count != deployers+1 {
		t.Errorf("Count = %d, want %d", active.Count, deployers+1)
	}
	if diff := cmp.Diff(active.RuleSets, svc.Version().RuleSets); diff != "" {
		t.Errorf("artifact differs from repository (-repo +artifact):\n%s", diff)
	}
	if got := backend.OpenSessions(); got != 0 {
		t.Errorf("OpenSessions() = %d after all evaluations, want 0", got)
	}
	if evaluations.Load() == 0 {
		t.Error("no evaluation ran")
	}
}

// gatedBackend wraps a real backend. The first session it opens after
// hold is called blocks in FireAll until release is closed.
type gatedBackend struct {
	rules.Backend

	mu       sync.Mutex
	held     bool
	entered  chan struct{}
	release  chan struct{}
	captured rules.Artifact
}

func (b *gatedBackend) hold() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.held = true
	b.entered = make(chan struct{})
	b.release = make(chan struct{})
}

func (b *gatedBackend) OpenSession(ctx context.Context, artifact rules.Artifact, sink rules.ResultSink) (rules.Session, error) {
	session, err := b.Backend.OpenSession(ctx, artifact, sink)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.held {
		return session, nil
	}
	b.held = false
	b.captured = artifact
	return &gatedSession{Session: session, entered: b.entered, release: b.release}, nil
}

type gatedSession struct {
	rules.Session
	entered chan struct{}
	release chan struct{}
}

func (s *gatedSession) FireAll(ctx context.Context) (int, error) {
	close(s.entered)
	<-s.release
	return s.Session.FireAll(ctx)
}

func TestService_EvaluationFinishesOnCapturedArtifact(t *testing.T) {
	backend := &gatedBackend{Backend: engine.New(nil, discardLogger())}
	svc, err := NewService(context.Background(), backend, Options{Logger: discardLogger()})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	mustDeploy(t, svc, "kyc", kycRules)
	before := svc.Version().ID

	backend.hold()
	done := make(chan *EvaluationOutcome, 1)
	go func() { done <- svc.Evaluate(context.Background(), "kyc", highRiskPending()) }()
	<-backend.entered

	escalated := strings.Replace(kycRules, "value: REVIEW", "value: ESCALATE", 1)
	mustDeploy(t, svc, "kyc", escalated)
	if after := svc.Version().ID; after == before {
		t.Fatalf("artifact id unchanged after redeploy: %s", after)
	}

	close(backend.release)
	inFlight := <-done

	if backend.captured == nil || backend.captured.ID() != before {
		t.Errorf("in-flight session opened on %v, want artifact %s", backend.captured, before)
	}
	if !inFlight.Matched || inFlight.Outcome != "REVIEW" {
		t.Errorf("in-flight outcome = %+v, want REVIEW from the artifact it started on", inFlight)
	}

	next := svc.Evaluate(context.Background(), "kyc", highRiskPending())
	if !next.Matched || next.Outcome != "ESCALATE" {
		t.Errorf("next outcome = %+v, want ESCALATE from the new artifact", next)
	}
}
