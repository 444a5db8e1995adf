package audit

import (
	"errors"
	"fmt"
)

// ErrRecorderClosed is returned by Record after the recorder was closed.
var ErrRecorderClosed = errors.New("audit recorder closed")

// StorageError is returned by storage backends.
type StorageError struct {
	Backend   string // "sqlite", "memory"
	Operation string // "open", "store", "query", ...
	Cause     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("audit %s storage: %s: %v", e.Backend, e.Operation, e.Cause)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}

// RecorderError reports an event the recorder dropped.
type RecorderError struct {
	EventID string
	Type    EventType
	RuleSet string
	Cause   error
}

func (e *RecorderError) Error() string {
	if e.RuleSet == "" {
		return fmt.Sprintf("dropped %s audit event %s: %v", e.Type, e.EventID, e.Cause)
	}
	return fmt.Sprintf("dropped %s audit event %s for rule set %q: %v", e.Type, e.EventID, e.RuleSet, e.Cause)
}

func (e *RecorderError) Unwrap() error {
	return e.Cause
}

// NewRecorderError creates a RecorderError for event.
func NewRecorderError(event *Event, cause error) *RecorderError {
	return &RecorderError{
		EventID: event.ID,
		Type:    event.Type,
		RuleSet: event.RuleSet,
		Cause:   cause,
	}
}

// RetentionError is returned when pruning fails. Policy is "age" or
// "count"; Limit is the configured days or record cap.
type RetentionError struct {
	Policy string
	Limit  int64
	Cause  error
}

func (e *RetentionError) Error() string {
	return fmt.Sprintf("audit retention by %s (limit %d): %v", e.Policy, e.Limit, e.Cause)
}

func (e *RetentionError) Unwrap() error {
	return e.Cause
}

// NewRetentionError creates a new RetentionError.
func NewRetentionError(policy string, limit int64, cause error) *RetentionError {
	return &RetentionError{Policy: policy, Limit: limit, Cause: cause}
}
