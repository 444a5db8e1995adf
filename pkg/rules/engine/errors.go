package engine

import (
	"fmt"

	"github.com/b3ckham/Orchestrator/pkg/rules/ast"
)

// TypeMismatchError is returned when an operator is applied to an operand of
// the wrong type at match time.
type TypeMismatchError struct {
	Operator ast.Operator
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("operator %s expects %s, got %s", e.Operator, e.Expected, e.Actual)
}

// ConditionError wraps a failure while matching a rule's conditions.
type ConditionError struct {
	Rule     string
	Field    string
	Location ast.Location
	Cause    error
}

// Error implements the error interface.
func (e *ConditionError) Error() string {
	return fmt.Sprintf("rule %q: condition on %q at %s: %v", e.Rule, e.Field, e.Location, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ConditionError) Unwrap() error {
	return e.Cause
}

// ScriptError wraps a failure raised by a script action.
type ScriptError struct {
	Rule     string
	Location ast.Location
	Cause    error
}

// Error implements the error interface.
func (e *ScriptError) Error() string {
	return fmt.Sprintf("rule %q: script at %s failed: %v", e.Rule, e.Location, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ScriptError) Unwrap() error {
	return e.Cause
}
