package ruleset

import (
	"errors"
	"fmt"

	"github.com/b3ckham/Orchestrator/pkg/rules"
)

// ErrNoArtifact is returned when the runtime has no active artifact.
var ErrNoArtifact = errors.New("no active artifact")

// RepositoryError represents a rejected repository operation.
type RepositoryError struct {
	// Operation is the operation that failed (e.g., "put")
	Operation string

	// Name is the rule-set name involved, if any
	Name string

	// Message describes the error
	Message string
}

// Error implements the error interface.
func (e *RepositoryError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("repository error for rule set %q during %s: %s", e.Name, e.Operation, e.Message)
	}
	return fmt.Sprintf("repository error during %s: %s", e.Operation, e.Message)
}

// CompilationError is returned by Deploy when the candidate corpus does not
// compile. The repository and the active artifact are left untouched.
type CompilationError struct {
	// RuleSet is the rule set whose deploy was rejected
	RuleSet string

	// Failure holds the backend diagnostics
	Failure *rules.BuildFailure
}

// Error implements the error interface.
func (e *CompilationError) Error() string {
	return fmt.Sprintf("Compilation error: %s", e.Failure.Error())
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *CompilationError) Unwrap() error {
	return e.Failure
}

// Diagnostics returns the backend diagnostics, one per failing rule set.
func (e *CompilationError) Diagnostics() []rules.Diagnostic {
	if e.Failure == nil {
		return nil
	}
	return e.Failure.Diagnostics
}

// LoadError represents an error reading rule-set files from disk.
type LoadError struct {
	// FilePath is the path of the file or directory that failed
	FilePath string

	// Message describes the error
	Message string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load %s: %s: %v", e.FilePath, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load %s: %s", e.FilePath, e.Message)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *LoadError) Unwrap() error {
	return e.Cause
}
