package rules

import (
	"fmt"
	"sort"
	"strings"
)

// Diagnostic describes why one rule set failed to compile.
type Diagnostic struct {
	RuleSet  string `json:"ruleSet"`
	Message  string `json:"message"`
	Location string `json:"location,omitempty"`
}

// String formats the diagnostic as "ruleset [location]: message".
func (d Diagnostic) String() string {
	if d.Location != "" {
		return fmt.Sprintf("%s [%s]: %s", d.RuleSet, d.Location, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.RuleSet, d.Message)
}

// BuildFailure is returned by Backend.Compile when any rule set fails.
// It holds one diagnostic per failing rule set.
type BuildFailure struct {
	Diagnostics []Diagnostic
}

// NewBuildFailure returns a failure with diagnostics sorted by rule set.
func NewBuildFailure(diags []Diagnostic) *BuildFailure {
	sorted := make([]Diagnostic, len(diags))
	copy(sorted, diags)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RuleSet < sorted[j].RuleSet
	})
	return &BuildFailure{Diagnostics: sorted}
}

// Error implements the error interface.
func (f *BuildFailure) Error() string {
	if len(f.Diagnostics) == 0 {
		return "build failed"
	}
	parts := make([]string, len(f.Diagnostics))
	for i, d := range f.Diagnostics {
		parts[i] = d.String()
	}
	return strings.Join(parts, "; ")
}

// FailedRuleSets returns the names of the rule sets that failed.
func (f *BuildFailure) FailedRuleSets() []string {
	names := make([]string, len(f.Diagnostics))
	for i, d := range f.Diagnostics {
		names[i] = d.RuleSet
	}
	return names
}
