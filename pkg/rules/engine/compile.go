package engine

import (
	"fmt"
	"regexp"

	"github.com/dop251/goja"

	"github.com/b3ckham/Orchestrator/pkg/facts"
	"github.com/b3ckham/Orchestrator/pkg/rules/ast"
	rulesErrors "github.com/b3ckham/Orchestrator/pkg/rules/errors"
)

type compiledRule struct {
	ruleSet  string
	name     string
	group    string
	salience int
	order    int // position in the corpus
	patterns []*compiledPattern
	actions  []*compiledAction
	location ast.Location
}

type compiledPattern struct {
	kind facts.Kind
	cond *compiledCondition // nil matches any present fact
}

type compiledCondition struct {
	typ      ast.ConditionType
	field    string
	op       ast.Operator
	expected any // facts.Decimal, string, bool, nil or []any
	re       *regexp.Regexp
	children []*compiledCondition
	location ast.Location
}

type compiledAction struct {
	typ      ast.ActionType
	text     string
	flag     bool
	program  *goja.Program
	location ast.Location
}

// compileRuleSet lowers a validated rule set. Script compile errors are
// collected with their action locations.
func compileRuleSet(rs *ast.RuleSet) ([]*compiledRule, *rulesErrors.ErrorList) {
	errs := rulesErrors.NewErrorList()
	out := make([]*compiledRule, 0, len(rs.Rules))

	for _, rule := range rs.EnabledRules() {
		cr := &compiledRule{
			ruleSet:  rs.Name,
			name:     rule.Name,
			group:    rule.AgendaGroup,
			salience: rule.Salience,
			location: rule.Location,
		}

		for _, p := range rule.Patterns {
			kind, _ := facts.ParseKind(p.Fact)
			cp := &compiledPattern{kind: kind}
			if p.Conditions != nil {
				cond, err := compileCondition(p.Conditions)
				if err != nil {
					errs.AddError(rulesErrors.ErrorTypeValidation,
						fmt.Sprintf("rule %q: %v", rule.Name, err), p.Conditions.Location)
					continue
				}
				cp.cond = cond
			}
			cr.patterns = append(cr.patterns, cp)
		}

		for i, a := range rule.Actions {
			ca := &compiledAction{typ: a.Type, location: a.Location}
			switch a.Type {
			case ast.ActionTypeMatch:
				ca.flag = true
				if b, ok := a.GetBoolParameter("value"); ok {
					ca.flag = b
				}
			case ast.ActionTypeOutcome, ast.ActionTypeReason:
				ca.text = a.GetStringParameter("value")
			case ast.ActionTypeScript:
				name := fmt.Sprintf("%s/%s#%d", rs.Name, rule.Name, i+1)
				program, err := goja.Compile(name, a.GetStringParameter("code"), true)
				if err != nil {
					errs.AddError(rulesErrors.ErrorTypeScript,
						fmt.Sprintf("rule %q: script does not compile: %v", rule.Name, err), a.Location)
					continue
				}
				ca.program = program
			}
			cr.actions = append(cr.actions, ca)
		}

		out = append(out, cr)
	}

	return out, errs
}

func compileCondition(c *ast.ConditionNode) (*compiledCondition, error) {
	cc := &compiledCondition{
		typ:      c.Type,
		field:    c.Field,
		op:       c.Operator,
		location: c.Location,
	}

	if !c.IsSimple() {
		for _, child := range c.Children {
			compiled, err := compileCondition(child)
			if err != nil {
				return nil, err
			}
			cc.children = append(cc.children, compiled)
		}
		return cc, nil
	}

	expected, err := literal(c.Value)
	if err != nil {
		return nil, err
	}
	cc.expected = expected

	if c.Operator == ast.OperatorMatches {
		pattern, _ := expected.(string)
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regular expression %q: %w", pattern, err)
		}
		cc.re = re
	}

	return cc, nil
}

// literal converts a value node to the runtime representation used by the
// operators. Numbers become facts.Decimal.
func literal(v *ast.ValueNode) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch v.Type {
	case ast.ValueTypeNumber:
		text, _ := v.Value.(string)
		return facts.ParseDecimal(text)
	case ast.ValueTypeArray:
		items, _ := v.Value.([]*ast.ValueNode)
		out := make([]any, 0, len(items))
		for _, item := range items {
			lit, err := literal(item)
			if err != nil {
				return nil, err
			}
			out = append(out, lit)
		}
		return out, nil
	case ast.ValueTypeNull:
		return nil, nil
	default:
		return v.Value, nil
	}
}
