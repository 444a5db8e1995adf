package audit

import (
	"context"
	"time"
)

// EventType distinguishes audit events.
type EventType string

const (
	// EventDeploy is recorded for every deploy attempt.
	EventDeploy EventType = "deploy"

	// EventEvaluate is recorded for every evaluation.
	EventEvaluate EventType = "evaluate"
)

// Event is a single audit trail entry.
type Event struct {
	// Identity
	ID        string    `json:"id"`         // UUID v4
	Type      EventType `json:"type"`       // deploy or evaluate
	RequestID string    `json:"request_id"` // From the HTTP layer, if any
	Timestamp time.Time `json:"timestamp"`  // When the operation started

	// Rule corpus
	RuleSet    string `json:"rule_set"`              // Deployed or focused rule set
	ArtifactID string `json:"artifact_id,omitempty"` // Artifact built or used
	Version    string `json:"version,omitempty"`     // Corpus content hash
	SourceHash string `json:"source_hash,omitempty"` // SHA-256 of the deployed source

	// Result
	Success     bool     `json:"success"`               // Deploy committed / evaluation completed
	Matched     bool     `json:"matched"`               // Evaluation matched
	Outcome     string   `json:"outcome,omitempty"`     // Evaluation outcome label
	Reasons     []string `json:"reasons,omitempty"`     // Evaluation reasons
	Diagnostics []string `json:"diagnostics,omitempty"` // Compile diagnostics of a failed deploy
	Error       string   `json:"error,omitempty"`       // Failure message

	Duration time.Duration `json:"duration"`
}

// Query defines filter parameters for querying audit events.
type Query struct {
	// Time range
	StartTime *time.Time `json:"start_time,omitempty"` // Inclusive start time
	EndTime   *time.Time `json:"end_time,omitempty"`   // Inclusive end time

	// Filters
	Type    EventType `json:"type,omitempty"`
	RuleSet string    `json:"rule_set,omitempty"`
	Success *bool     `json:"success,omitempty"`

	// Pagination
	Limit  int `json:"limit,omitempty"`  // Max events to return
	Offset int `json:"offset,omitempty"` // Skip N events
}

// Storage defines the interface for audit storage backends.
// Implementations must be thread-safe and support concurrent access.
type Storage interface {
	// Store persists an event.
	Store(ctx context.Context, event *Event) error

	// Query retrieves events matching the query filters, newest first.
	// Returns an empty slice if no events match.
	Query(ctx context.Context, query *Query) ([]*Event, error)

	// Count returns the number of events matching the query filters.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes events matching the query filters and returns the
	// number of events deleted. Used for retention.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Close releases any resources held by the storage backend.
	Close() error
}
