package recorder

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/goleak"

	"github.com/b3ckham/Orchestrator/pkg/audit"
	"github.com/b3ckham/Orchestrator/pkg/audit/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRecorder_RecordAndClose(t *testing.T) {
	store := storage.NewMemoryStorage()
	rec := NewRecorder(store, DefaultConfig())

	for i := 0; i < 50; i++ {
		if err := rec.Record(context.Background(), &audit.Event{Type: audit.EventEvaluate, RuleSet: "kyc"}); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	count, err := store.Count(context.Background(), &audit.Query{})
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 50 {
		t.Errorf("Count() = %d, want 50 (Close must drain the buffer)", count)
	}
}

func TestRecorder_FillsIdentity(t *testing.T) {
	store := storage.NewMemoryStorage()
	rec := NewRecorder(store, DefaultConfig())

	event := &audit.Event{Type: audit.EventDeploy, RuleSet: "kyc"}
	if err := rec.Record(context.Background(), event); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	rec.Close()

	if event.ID == "" || event.Timestamp.IsZero() {
		t.Errorf("ID/Timestamp not filled: %+v", event)
	}
}

func TestRecorder_Disabled(t *testing.T) {
	store := storage.NewMemoryStorage()
	config := DefaultConfig()
	config.Enabled = false
	rec := NewRecorder(store, config)

	if err := rec.Record(context.Background(), &audit.Event{RuleSet: "kyc"}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	rec.Close()

	if count, _ := store.Count(context.Background(), nil); count != 0 {
		t.Errorf("Count() = %d, want 0 when disabled", count)
	}
}

func TestRecorder_RecordAfterClose(t *testing.T) {
	rec := NewRecorder(storage.NewMemoryStorage(), DefaultConfig())
	rec.Close()
	rec.Close()

	err := rec.Record(context.Background(), &audit.Event{RuleSet: "kyc"})
	var recErr *audit.RecorderError
	if !errors.As(err, &recErr) || !errors.Is(err, audit.ErrRecorderClosed) {
		t.Errorf("Record() after Close error = %v, want RecorderError wrapping ErrRecorderClosed", err)
	}
}

func TestHashSource(t *testing.T) {
	if HashSource("") != "" {
		t.Error("HashSource(\"\") should be empty")
	}
	a, b := HashSource("rules: []"), HashSource("rules: []")
	if a != b || len(a) != 64 {
		t.Errorf("HashSource() = %q, %q", a, b)
	}
	if HashSource("rules: [x]") == a {
		t.Error("different sources hashed to the same value")
	}
}
