// Package rules defines the contract between the rule-set service and a rule
// engine backend.
//
// A Backend compiles the complete corpus of rule-set sources into one
// immutable Artifact, or reports a BuildFailure with one Diagnostic per
// rule set that failed. Sessions opened from an artifact hold the facts of a
// single evaluation; they are cheap, single-use, and must be disposed.
//
// The engine subpackage provides the in-process implementation; its syntax
// tree, parser and validator live in ast, parser and validator.
package rules
