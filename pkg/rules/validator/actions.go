package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/b3ckham/Orchestrator/pkg/rules/ast"
	rulesErrors "github.com/b3ckham/Orchestrator/pkg/rules/errors"
)

// actionParams lists the parameters each action type accepts and whether
// they are required.
var actionParams = map[ast.ActionType]map[string]bool{
	ast.ActionTypeMatch:   {"value": false},
	ast.ActionTypeOutcome: {"value": true},
	ast.ActionTypeReason:  {"value": true},
	ast.ActionTypeScript:  {"code": true},
	ast.ActionTypeHalt:    {},
}

// ActionValidator checks rule consequences.
type ActionValidator struct {
	typeNames []string
}

// NewActionValidator creates an action validator.
func NewActionValidator() *ActionValidator {
	av := &ActionValidator{}
	for _, t := range ast.ActionTypes {
		av.typeNames = append(av.typeNames, string(t))
	}
	return av
}

// Validate checks every action of every rule.
func (av *ActionValidator) Validate(rs *ast.RuleSet) *rulesErrors.ErrorList {
	errs := rulesErrors.NewErrorList()
	for _, rule := range rs.Rules {
		for _, a := range rule.Actions {
			av.validateAction(rule, a, errs)
		}
	}
	return errs
}

func (av *ActionValidator) validateAction(rule *ast.Rule, a *ast.Action, errs *rulesErrors.ErrorList) {
	params, ok := actionParams[a.Type]
	if !ok {
		errs.AddErrorWithSuggestion(rulesErrors.ErrorTypeValidation,
			fmt.Sprintf("rule %q: unknown action type %q", rule.Name, a.Type),
			a.Location, rulesErrors.Suggest(string(a.Type), av.typeNames))
		return
	}

	names := make([]string, 0, len(a.Parameters))
	for name := range a.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, allowed := params[name]; !allowed {
			errs.AddError(rulesErrors.ErrorTypeValidation,
				fmt.Sprintf("rule %q: %s action does not take parameter %q", rule.Name, a.Type, name),
				a.Parameters[name].Location)
		}
	}

	for name, required := range params {
		if required && !a.HasParameter(name) {
			errs.AddError(rulesErrors.ErrorTypeValidation,
				fmt.Sprintf("rule %q: %s action requires %q", rule.Name, a.Type, name), a.Location)
		}
	}

	switch a.Type {
	case ast.ActionTypeMatch:
		if a.HasParameter("value") {
			if _, isBool := a.GetBoolParameter("value"); !isBool {
				errs.AddError(rulesErrors.ErrorTypeValidation,
					fmt.Sprintf("rule %q: match value must be a boolean", rule.Name), a.Location)
			}
		}
	case ast.ActionTypeOutcome, ast.ActionTypeReason:
		if a.HasParameter("value") && strings.TrimSpace(a.GetStringParameter("value")) == "" {
			errs.AddError(rulesErrors.ErrorTypeValidation,
				fmt.Sprintf("rule %q: %s value must be a non-empty string", rule.Name, a.Type), a.Location)
		}
	case ast.ActionTypeScript:
		if a.HasParameter("code") && strings.TrimSpace(a.GetStringParameter("code")) == "" {
			errs.AddError(rulesErrors.ErrorTypeValidation,
				fmt.Sprintf("rule %q: script code must be a non-empty string", rule.Name), a.Location)
		}
	}
}
