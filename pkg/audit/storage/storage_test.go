package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/b3ckham/Orchestrator/pkg/audit"
)

// backends returns every storage implementation under test. The mattn
// driver is skipped when the binary was built without cgo.
func backends(t *testing.T) map[string]func(t *testing.T) audit.Storage {
	return map[string]func(t *testing.T) audit.Storage{
		"memory": func(t *testing.T) audit.Storage {
			return NewMemoryStorage()
		},
		"sqlite-modernc": func(t *testing.T) audit.Storage {
			return openSQLite(t, DriverModernc)
		},
		"sqlite-mattn": func(t *testing.T) audit.Storage {
			return openSQLite(t, DriverMattn)
		},
	}
}

func openSQLite(t *testing.T, driver string) audit.Storage {
	t.Helper()
	config := DefaultSQLiteConfig()
	config.Path = filepath.Join(t.TempDir(), "audit.db")
	config.Driver = driver

	s, err := NewSQLiteStorage(config)
	if err != nil {
		if driver == DriverMattn && strings.Contains(err.Error(), "CGO_ENABLED=0") {
			t.Skipf("mattn driver unavailable: %v", err)
		}
		t.Fatalf("NewSQLiteStorage(%s) error = %v", driver, err)
	}
	return s
}

func seed(t *testing.T, s audit.Storage, base time.Time) {
	t.Helper()
	events := []*audit.Event{
		{
			ID:         "deploy-ok",
			Type:       audit.EventDeploy,
			Timestamp:  base.Add(-3 * time.Hour),
			RuleSet:    "kyc",
			ArtifactID: "a1",
			Version:    "v1",
			SourceHash: "h1",
			Success:    true,
			Duration:   12 * time.Millisecond,
		},
		{
			ID:          "deploy-bad",
			Type:        audit.EventDeploy,
			Timestamp:   base.Add(-2 * time.Hour),
			RuleSet:     "kyc",
			SourceHash:  "h2",
			Diagnostics: []string{"kyc: unknown fact \"Walet\""},
			Error:       "compilation failed",
		},
		{
			ID:        "eval-1",
			Type:      audit.EventEvaluate,
			RequestID: "req-1",
			Timestamp: base.Add(-1 * time.Hour),
			RuleSet:   "kyc",
			Success:   true,
			Matched:   true,
			Outcome:   "REVIEW",
			Reasons:   []string{"high-risk-pending"},
		},
		{
			ID:        "eval-2",
			Type:      audit.EventEvaluate,
			Timestamp: base,
			RuleSet:   "aml",
			Success:   true,
		},
	}
	for _, e := range events {
		if err := s.Store(context.Background(), e); err != nil {
			t.Fatalf("Store(%s) error = %v", e.ID, err)
		}
	}
}

func ids(events []*audit.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}

func TestStorage_Query(t *testing.T) {
	base := time.Now().Truncate(time.Millisecond)
	failed := false
	from := base.Add(-150 * time.Minute)

	tests := []struct {
		name  string
		query *audit.Query
		want  []string
	}{
		{name: "all newest first", query: &audit.Query{}, want: []string{"eval-2", "eval-1", "deploy-bad", "deploy-ok"}},
		{name: "by type", query: &audit.Query{Type: audit.EventDeploy}, want: []string{"deploy-bad", "deploy-ok"}},
		{name: "by rule set", query: &audit.Query{RuleSet: "aml"}, want: []string{"eval-2"}},
		{name: "failures", query: &audit.Query{Success: &failed}, want: []string{"deploy-bad"}},
		{name: "since", query: &audit.Query{StartTime: &from}, want: []string{"eval-2", "eval-1", "deploy-bad"}},
		{name: "paged", query: &audit.Query{Limit: 2, Offset: 1}, want: []string{"eval-1", "deploy-bad"}},
	}

	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			defer s.Close()
			seed(t, s, base)

			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					got, err := s.Query(context.Background(), tt.query)
					if err != nil {
						t.Fatalf("Query() error = %v", err)
					}
					if diff := cmp.Diff(tt.want, ids(got)); diff != "" {
						t.Errorf("Query() mismatch (-want +got):\n%s", diff)
					}
				})
			}
		})
	}
}

func TestStorage_RoundTrip(t *testing.T) {
	base := time.Now().Truncate(time.Millisecond)

	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			defer s.Close()
			seed(t, s, base)

			got, err := s.Query(context.Background(), &audit.Query{Type: audit.EventEvaluate, RuleSet: "kyc"})
			if err != nil || len(got) != 1 {
				t.Fatalf("Query() = %v, %v; want one event", got, err)
			}
			e := got[0]
			if !e.Matched || e.Outcome != "REVIEW" || e.RequestID != "req-1" {
				t.Errorf("event = %+v", e)
			}
			if diff := cmp.Diff([]string{"high-risk-pending"}, e.Reasons); diff != "" {
				t.Errorf("Reasons mismatch (-want +got):\n%s", diff)
			}
			if !e.Timestamp.Equal(base.Add(-time.Hour)) {
				t.Errorf("Timestamp = %v, want %v", e.Timestamp, base.Add(-time.Hour))
			}

			bad, err := s.Query(context.Background(), &audit.Query{Type: audit.EventDeploy, Limit: 1})
			if err != nil || len(bad) != 1 {
				t.Fatalf("Query() = %v, %v", bad, err)
			}
			if bad[0].Error != "compilation failed" || len(bad[0].Diagnostics) != 1 {
				t.Errorf("failed deploy = %+v", bad[0])
			}
		})
	}
}

func TestStorage_CountAndDelete(t *testing.T) {
	base := time.Now().Truncate(time.Millisecond)

	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			defer s.Close()
			seed(t, s, base)
			ctx := context.Background()

			count, err := s.Count(ctx, &audit.Query{Type: audit.EventEvaluate})
			if err != nil || count != 2 {
				t.Errorf("Count() = %d, %v; want 2", count, err)
			}

			cutoff := base.Add(-90 * time.Minute)
			deleted, err := s.Delete(ctx, &audit.Query{EndTime: &cutoff})
			if err != nil || deleted != 2 {
				t.Errorf("Delete() = %d, %v; want 2", deleted, err)
			}

			count, err = s.Count(ctx, &audit.Query{})
			if err != nil || count != 2 {
				t.Errorf("Count() after delete = %d, %v; want 2", count, err)
			}
		})
	}
}

func TestNewSQLiteStorage_UnknownDriver(t *testing.T) {
	config := DefaultSQLiteConfig()
	config.Path = filepath.Join(t.TempDir(), "audit.db")
	config.Driver = "postgres"

	_, err := NewSQLiteStorage(config)
	var storageErr *audit.StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("NewSQLiteStorage() error = %v, want *audit.StorageError", err)
	}
	if storageErr.Operation != "open" {
		t.Errorf("Operation = %q, want open", storageErr.Operation)
	}
}

func TestMemoryStorage_CopiesEvents(t *testing.T) {
	s := NewMemoryStorage()
	event := &audit.Event{ID: "e", Reasons: []string{"a"}}
	if err := s.Store(context.Background(), event); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	event.Reasons[0] = "mutated"

	got, _ := s.Query(context.Background(), nil)
	if got[0].Reasons[0] != "a" {
		t.Errorf("stored event was mutated through the caller's slice: %v", got[0].Reasons)
	}
}
