package engine

import (
	"github.com/b3ckham/Orchestrator/pkg/facts"
	"github.com/b3ckham/Orchestrator/pkg/rules/ast"
)

// matchRule reports whether every pattern of r is satisfied by the working
// memory.
func matchRule(r *compiledRule, memory map[facts.Kind]facts.Fact) (bool, error) {
	for _, p := range r.patterns {
		fact, ok := memory[p.kind]
		if !ok {
			return false, nil
		}
		if p.cond == nil {
			continue
		}
		matched, err := matchCondition(r, p.cond, fact)
		if err != nil || !matched {
			return false, err
		}
	}
	return true, nil
}

func matchCondition(r *compiledRule, c *compiledCondition, fact facts.Fact) (bool, error) {
	switch c.typ {
	case ast.ConditionTypeAll:
		for _, child := range c.children {
			matched, err := matchCondition(r, child, fact)
			if err != nil || !matched {
				return false, err
			}
		}
		return true, nil

	case ast.ConditionTypeAny:
		for _, child := range c.children {
			matched, err := matchCondition(r, child, fact)
			if err != nil {
				return false, err
			}
			if matched {
				return true, nil
			}
		}
		return false, nil

	case ast.ConditionTypeNot:
		if len(c.children) == 0 {
			return true, nil
		}
		matched, err := matchCondition(r, c.children[0], fact)
		return !matched, err

	default:
		actual, ok := fact.Field(c.field)
		if !ok {
			actual = nil
		}
		matched, err := evaluateOperator(c.op, actual, c.expected, c.re)
		if err != nil {
			return false, &ConditionError{Rule: r.name, Field: c.field, Location: c.location, Cause: err}
		}
		return matched, nil
	}
}
