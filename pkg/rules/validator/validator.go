package validator

import (
	"fmt"
	"strings"

	"github.com/b3ckham/Orchestrator/pkg/rules/ast"
	rulesErrors "github.com/b3ckham/Orchestrator/pkg/rules/errors"
)

// Validator runs all validation passes over a rule set.
type Validator struct {
	semantic *SemanticValidator
	actions  *ActionValidator
}

// New creates a new validator with all validation passes.
func New() *Validator {
	return &Validator{
		semantic: NewSemanticValidator(),
		actions:  NewActionValidator(),
	}
}

// Validate returns nil or an *errors.ErrorList.
func (v *Validator) Validate(rs *ast.RuleSet) error {
	errs := rulesErrors.NewErrorList()
	errs.Merge(validateStructure(rs))

	if !errs.HasErrorType(rulesErrors.ErrorTypeStructural) {
		errs.Merge(v.semantic.Validate(rs))
		errs.Merge(v.actions.Validate(rs))
	}

	return errs.ToError()
}

func validateStructure(rs *ast.RuleSet) *rulesErrors.ErrorList {
	errs := rulesErrors.NewErrorList()
	seen := make(map[string]ast.Location)

	for _, rule := range rs.Rules {
		if first, dup := seen[rule.Name]; dup {
			errs.AddError(rulesErrors.ErrorTypeStructural,
				fmt.Sprintf("duplicate rule name %q (first defined at %s)", rule.Name, first),
				rule.Location)
		} else {
			seen[rule.Name] = rule.Location
		}

		if strings.TrimSpace(rule.AgendaGroup) == "" {
			errs.AddError(rulesErrors.ErrorTypeStructural,
				fmt.Sprintf("rule %q has a blank agenda group", rule.Name), rule.Location)
		}
	}

	return errs
}
