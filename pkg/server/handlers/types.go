package handlers

import (
	"context"

	"github.com/b3ckham/Orchestrator/pkg/facts"
	"github.com/b3ckham/Orchestrator/pkg/ruleset"
)

// RuleService is the rule host as seen by the HTTP layer.
// *ruleset.Service implements it.
type RuleService interface {
	Deploy(ctx context.Context, name, source string) (*ruleset.DeployResult, error)
	ListActive() ruleset.ActiveRuleSets
	Evaluate(ctx context.Context, ruleSetName string, fc *facts.FactContext) *ruleset.EvaluationOutcome
}

// DeployRequest is the body of POST /api/rules/deploy. The source may be
// sent as drlContent or ruleSource; ruleSource wins when both are set.
type DeployRequest struct {
	RuleSetName string `json:"ruleSetName"`
	DRLContent  string `json:"drlContent,omitempty"`
	RuleSource  string `json:"ruleSource,omitempty"`
}

// Source returns the submitted rule source.
func (r *DeployRequest) Source() string {
	if r.RuleSource != "" {
		return r.RuleSource
	}
	return r.DRLContent
}

// EvaluateRequest is the body of POST /api/rules/evaluate.
type EvaluateRequest struct {
	RuleSetName string             `json:"ruleSetName"`
	Facts       *facts.FactContext `json:"facts"`
}
