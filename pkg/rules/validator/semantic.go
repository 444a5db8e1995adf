package validator

import (
	"fmt"
	"regexp"

	"github.com/b3ckham/Orchestrator/pkg/facts"
	"github.com/b3ckham/Orchestrator/pkg/rules/ast"
	rulesErrors "github.com/b3ckham/Orchestrator/pkg/rules/errors"
)

// SemanticValidator checks patterns against the fact data model.
type SemanticValidator struct {
	factNames     []string
	operatorNames []string
}

// NewSemanticValidator creates a semantic validator.
func NewSemanticValidator() *SemanticValidator {
	sv := &SemanticValidator{}
	for _, k := range facts.Kinds {
		sv.factNames = append(sv.factNames, string(k))
	}
	for _, op := range ast.Operators {
		sv.operatorNames = append(sv.operatorNames, string(op))
	}
	return sv
}

// Validate checks every pattern of every rule.
func (sv *SemanticValidator) Validate(rs *ast.RuleSet) *rulesErrors.ErrorList {
	errs := rulesErrors.NewErrorList()

	for _, rule := range rs.Rules {
		for _, p := range rule.Patterns {
			kind, ok := facts.ParseKind(p.Fact)
			if !ok {
				errs.AddErrorWithSuggestion(rulesErrors.ErrorTypeSemantic,
					fmt.Sprintf("rule %q: unknown fact %q", rule.Name, p.Fact),
					p.Location, rulesErrors.Suggest(p.Fact, sv.factNames))
				continue
			}
			p.Conditions.Walk(func(c *ast.ConditionNode) {
				if c.IsSimple() {
					sv.validateCondition(rule, kind, c, errs)
				}
			})
		}
	}

	return errs
}

func (sv *SemanticValidator) validateCondition(rule *ast.Rule, kind facts.Kind, c *ast.ConditionNode, errs *rulesErrors.ErrorList) {
	if !c.Operator.IsValid() {
		errs.AddErrorWithSuggestion(rulesErrors.ErrorTypeSemantic,
			fmt.Sprintf("rule %q: unknown operator %q", rule.Name, c.Operator),
			c.Location, rulesErrors.Suggest(string(c.Operator), sv.operatorNames))
		return
	}

	spec, known := facts.LookupField(kind, c.Field)
	if facts.Schema(kind) != nil && !known {
		errs.AddErrorWithSuggestion(rulesErrors.ErrorTypeSemantic,
			fmt.Sprintf("rule %q: %s has no field %q", rule.Name, kind, c.Field),
			c.Location, rulesErrors.Suggest(c.Field, facts.FieldNames(kind)))
		return
	}

	where := fmt.Sprintf("rule %q: %s.%s %s", rule.Name, kind, c.Field, c.Operator)
	v := c.Value

	switch {
	case c.Operator == ast.OperatorExists:
		if v != nil && v.Type != ast.ValueTypeBoolean {
			errs.AddError(rulesErrors.ErrorTypeValidation, where+" expects a boolean", c.Location)
		}
		return

	case c.Operator.IsOrdering():
		if known && !spec.Numeric {
			errs.AddError(rulesErrors.ErrorTypeValidation,
				fmt.Sprintf("%s: field is not numeric", where), c.Location)
			return
		}
		checkNumber(where, v, errs)
		return

	case c.Operator == ast.OperatorIn || c.Operator == ast.OperatorNotIn:
		if v == nil || v.Type != ast.ValueTypeArray {
			errs.AddError(rulesErrors.ErrorTypeValidation, where+" expects a list", c.Location)
			return
		}
		items, _ := v.Value.([]*ast.ValueNode)
		for _, item := range items {
			checkLiteral(where, spec, known, item, errs)
		}
		return

	case c.Operator == ast.OperatorMatches:
		pattern, ok := stringValue(v)
		if !ok {
			errs.AddError(rulesErrors.ErrorTypeValidation, where+" expects a regular expression string", c.Location)
			return
		}
		if _, err := regexp.Compile(pattern); err != nil {
			errs.AddError(rulesErrors.ErrorTypeValidation,
				fmt.Sprintf("%s: invalid regular expression: %v", where, err), c.Location)
		}
		return

	case c.Operator == ast.OperatorStartsWith || c.Operator == ast.OperatorEndsWith:
		if _, ok := stringValue(v); !ok {
			errs.AddError(rulesErrors.ErrorTypeValidation, where+" expects a string", c.Location)
		}
		return

	case c.Operator == ast.OperatorContains:
		if v == nil || v.Type == ast.ValueTypeArray || v.Type == ast.ValueTypeNull {
			errs.AddError(rulesErrors.ErrorTypeValidation, where+" expects a scalar", c.Location)
		}
		return

	default: // == and !=
		if v == nil || v.Type == ast.ValueTypeArray {
			errs.AddError(rulesErrors.ErrorTypeValidation, where+" expects a scalar", c.Location)
			return
		}
		checkLiteral(where, spec, known, v, errs)
	}
}

// checkLiteral verifies a literal compared for equality against a field.
func checkLiteral(where string, spec facts.FieldSpec, known bool, v *ast.ValueNode, errs *rulesErrors.ErrorList) {
	if v.Type == ast.ValueTypeNumber {
		checkNumber(where, v, errs)
	}
	if !known {
		return
	}

	if spec.Numeric {
		if v.Type != ast.ValueTypeNumber && v.Type != ast.ValueTypeNull {
			errs.AddError(rulesErrors.ErrorTypeValidation,
				fmt.Sprintf("%s: expects a number, got %s", where, v), v.Location)
		}
		return
	}

	if len(spec.Enum) > 0 {
		s, ok := stringValue(v)
		if !ok {
			errs.AddError(rulesErrors.ErrorTypeValidation,
				fmt.Sprintf("%s: expects one of %v, got %s", where, spec.Enum, v), v.Location)
			return
		}
		for _, allowed := range spec.Enum {
			if s == allowed {
				return
			}
		}
		errs.AddErrorWithSuggestion(rulesErrors.ErrorTypeSemantic,
			fmt.Sprintf("%s: unknown value %q", where, s),
			v.Location, rulesErrors.Suggest(s, spec.Enum))
	}
}

func checkNumber(where string, v *ast.ValueNode, errs *rulesErrors.ErrorList) {
	if v == nil || v.Type != ast.ValueTypeNumber {
		loc := ast.Location{}
		if v != nil {
			loc = v.Location
		}
		errs.AddError(rulesErrors.ErrorTypeValidation, where+" expects a number", loc)
		return
	}
	text, _ := v.Value.(string)
	if _, err := facts.ParseDecimal(text); err != nil {
		errs.AddError(rulesErrors.ErrorTypeValidation,
			fmt.Sprintf("%s: %v", where, err), v.Location)
	}
}

func stringValue(v *ast.ValueNode) (string, bool) {
	if v == nil || v.Type != ast.ValueTypeString {
		return "", false
	}
	s, ok := v.Value.(string)
	return s, ok
}
