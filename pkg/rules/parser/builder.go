package parser

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/b3ckham/Orchestrator/pkg/rules/ast"
	rulesErrors "github.com/b3ckham/Orchestrator/pkg/rules/errors"
)

var (
	ruleSetKeys   = []string{"package", "description", "rules"}
	ruleKeys      = []string{"name", "description", "agenda_group", "salience", "enabled", "when", "then"}
	patternKeys   = []string{"fact", "conditions"}
	conditionKeys = []string{"field", "operator", "value", "all", "any", "not"}
)

// builder converts yaml.Node trees into AST nodes, collecting errors.
type builder struct {
	file     string
	maxDepth int
	errs     *rulesErrors.ErrorList
}

func newBuilder(file string, maxDepth int) *builder {
	return &builder{
		file:     file,
		maxDepth: maxDepth,
		errs:     rulesErrors.NewErrorList(),
	}
}

func (b *builder) loc(node *yaml.Node) ast.Location {
	return ast.Location{File: b.file, Line: node.Line, Column: node.Column}
}

func (b *builder) expectKind(node *yaml.Node, kind yaml.Kind, what string) bool {
	if node.Kind == kind {
		return true
	}
	b.errs.AddError(rulesErrors.ErrorTypeStructural,
		fmt.Sprintf("%s must be a %s, got %s", what, kindName(kind), kindName(node.Kind)),
		b.loc(node))
	return false
}

func (b *builder) checkKeys(node *yaml.Node, allowed []string, what string) {
	for _, kv := range mappingPairs(node) {
		known := false
		for _, k := range allowed {
			if kv.key.Value == k {
				known = true
				break
			}
		}
		if !known {
			b.errs.AddErrorWithSuggestion(rulesErrors.ErrorTypeStructural,
				fmt.Sprintf("unknown %s field %q", what, kv.key.Value),
				b.loc(kv.key),
				rulesErrors.Suggest(kv.key.Value, allowed))
		}
	}
}

func (b *builder) scalarString(node *yaml.Node, what string) (string, bool) {
	node = resolve(node)
	if !b.expectKind(node, yaml.ScalarNode, what) {
		return "", false
	}
	return node.Value, true
}

func (b *builder) buildRuleSet(root *yaml.Node) *ast.RuleSet {
	rs := &ast.RuleSet{Location: b.loc(root)}
	root = resolve(root)
	if !b.expectKind(root, yaml.MappingNode, "rule set") {
		return rs
	}
	b.checkKeys(root, ruleSetKeys, "rule set")

	if n := mappingValue(root, "package"); n != nil {
		rs.Package, _ = b.scalarString(n, "package")
	}
	if n := mappingValue(root, "description"); n != nil {
		rs.Description, _ = b.scalarString(n, "description")
	}

	rulesNode := mappingValue(root, "rules")
	if rulesNode == nil {
		b.errs.AddError(rulesErrors.ErrorTypeStructural, "rule set has no 'rules' list", b.loc(root))
		return rs
	}
	rulesNode = resolve(rulesNode)
	if !b.expectKind(rulesNode, yaml.SequenceNode, "rules") {
		return rs
	}

	for _, n := range rulesNode.Content {
		if rule := b.buildRule(n); rule != nil {
			rs.Rules = append(rs.Rules, rule)
		}
	}
	return rs
}

func (b *builder) buildRule(node *yaml.Node) *ast.Rule {
	node = resolve(node)
	if !b.expectKind(node, yaml.MappingNode, "rule") {
		return nil
	}
	b.checkKeys(node, ruleKeys, "rule")

	rule := &ast.Rule{
		AgendaGroup: ast.DefaultAgendaGroup,
		Enabled:     true,
		Location:    b.loc(node),
	}

	if n := mappingValue(node, "name"); n != nil {
		rule.Name, _ = b.scalarString(n, "rule name")
	}
	if strings.TrimSpace(rule.Name) == "" {
		b.errs.AddError(rulesErrors.ErrorTypeStructural, "rule has no name", rule.Location)
	}
	if n := mappingValue(node, "description"); n != nil {
		rule.Description, _ = b.scalarString(n, "description")
	}
	if n := mappingValue(node, "agenda_group"); n != nil {
		if group, ok := b.scalarString(n, "agenda_group"); ok && strings.TrimSpace(group) != "" {
			rule.AgendaGroup = group
		}
	}
	if n := mappingValue(node, "salience"); n != nil {
		if s, ok := b.scalarString(n, "salience"); ok {
			v, err := strconv.Atoi(s)
			if err != nil {
				b.errs.AddError(rulesErrors.ErrorTypeStructural,
					fmt.Sprintf("salience must be an integer, got %q", s), b.loc(n))
			}
			rule.Salience = v
		}
	}
	if n := mappingValue(node, "enabled"); n != nil {
		var enabled bool
		if err := resolve(n).Decode(&enabled); err != nil {
			b.errs.AddError(rulesErrors.ErrorTypeStructural, "enabled must be a boolean", b.loc(n))
		} else {
			rule.Enabled = enabled
		}
	}

	if n := mappingValue(node, "when"); n != nil {
		rule.Patterns = b.buildPatterns(resolve(n))
	}

	thenNode := mappingValue(node, "then")
	if thenNode == nil {
		b.errs.AddError(rulesErrors.ErrorTypeStructural,
			fmt.Sprintf("rule %q has no 'then' actions", rule.Name), rule.Location)
		return rule
	}
	thenNode = resolve(thenNode)
	if b.expectKind(thenNode, yaml.SequenceNode, "then") {
		for _, n := range thenNode.Content {
			if action := b.buildAction(n); action != nil {
				rule.Actions = append(rule.Actions, action)
			}
		}
	}

	return rule
}

func (b *builder) buildPatterns(node *yaml.Node) []*ast.Pattern {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil
	}
	if !b.expectKind(node, yaml.SequenceNode, "when") {
		return nil
	}

	var patterns []*ast.Pattern
	for _, n := range node.Content {
		n = resolve(n)
		if !b.expectKind(n, yaml.MappingNode, "pattern") {
			continue
		}
		b.checkKeys(n, patternKeys, "pattern")

		p := &ast.Pattern{Location: b.loc(n)}
		if f := mappingValue(n, "fact"); f != nil {
			p.Fact, _ = b.scalarString(f, "fact")
		} else {
			b.errs.AddError(rulesErrors.ErrorTypeStructural, "pattern has no 'fact'", p.Location)
		}
		if c := mappingValue(n, "conditions"); c != nil {
			p.Conditions = b.buildCondition(resolve(c), 1)
		}
		patterns = append(patterns, p)
	}
	return patterns
}

// buildCondition accepts a list (implicit all), an all/any/not mapping, or a
// field/operator/value mapping.
func (b *builder) buildCondition(node *yaml.Node, depth int) *ast.ConditionNode {
	if depth > b.maxDepth {
		b.errs.AddError(rulesErrors.ErrorTypeStructural,
			fmt.Sprintf("condition nesting exceeds maximum depth %d", b.maxDepth), b.loc(node))
		return nil
	}

	switch node.Kind {
	case yaml.SequenceNode:
		return b.buildLogical(ast.ConditionTypeAll, node, depth)
	case yaml.MappingNode:
	default:
		if node.Tag == "!!null" {
			return nil
		}
		b.errs.AddError(rulesErrors.ErrorTypeStructural,
			fmt.Sprintf("condition must be a mapping or list, got %s", kindName(node.Kind)), b.loc(node))
		return nil
	}

	b.checkKeys(node, conditionKeys, "condition")

	for _, logical := range []ast.ConditionType{ast.ConditionTypeAll, ast.ConditionTypeAny, ast.ConditionTypeNot} {
		child := mappingValue(node, string(logical))
		if child == nil {
			continue
		}
		if len(node.Content) != 2 {
			b.errs.AddError(rulesErrors.ErrorTypeStructural,
				fmt.Sprintf("'%s' cannot be combined with other condition fields", logical), b.loc(node))
		}
		return b.buildLogical(logical, resolve(child), depth)
	}

	cond := &ast.ConditionNode{
		Type:     ast.ConditionTypeSimple,
		Location: b.loc(node),
	}
	if f := mappingValue(node, "field"); f != nil {
		cond.Field, _ = b.scalarString(f, "field")
	}
	if cond.Field == "" {
		b.errs.AddError(rulesErrors.ErrorTypeStructural, "condition has no 'field'", cond.Location)
	}
	if op := mappingValue(node, "operator"); op != nil {
		s, _ := b.scalarString(op, "operator")
		cond.Operator = ast.Operator(s)
	} else {
		b.errs.AddError(rulesErrors.ErrorTypeStructural, "condition has no 'operator'", cond.Location)
	}
	if v := mappingValue(node, "value"); v != nil {
		cond.Value = b.buildValue(resolve(v))
	} else if cond.Operator != ast.OperatorExists {
		b.errs.AddError(rulesErrors.ErrorTypeStructural, "condition has no 'value'", cond.Location)
	}

	return cond
}

func (b *builder) buildLogical(kind ast.ConditionType, node *yaml.Node, depth int) *ast.ConditionNode {
	cond := &ast.ConditionNode{Type: kind, Location: b.loc(node)}

	var items []*yaml.Node
	switch node.Kind {
	case yaml.SequenceNode:
		items = node.Content
	case yaml.MappingNode:
		items = []*yaml.Node{node}
	default:
		b.errs.AddError(rulesErrors.ErrorTypeStructural,
			fmt.Sprintf("'%s' must contain conditions", kind), b.loc(node))
		return cond
	}

	for _, item := range items {
		if child := b.buildCondition(resolve(item), depth+1); child != nil {
			cond.Children = append(cond.Children, child)
		}
	}

	if len(cond.Children) == 0 {
		b.errs.AddError(rulesErrors.ErrorTypeStructural,
			fmt.Sprintf("'%s' must contain at least one condition", kind), cond.Location)
	}
	if kind == ast.ConditionTypeNot && len(cond.Children) > 1 {
		// not over a list negates the conjunction
		cond.Children = []*ast.ConditionNode{{
			Type:     ast.ConditionTypeAll,
			Children: cond.Children,
			Location: cond.Location,
		}}
	}
	return cond
}

// buildAction accepts "- match" shorthand or a mapping with a 'type' key;
// other keys become parameters.
func (b *builder) buildAction(node *yaml.Node) *ast.Action {
	node = resolve(node)
	action := &ast.Action{
		Parameters: make(map[string]*ast.ValueNode),
		Location:   b.loc(node),
	}

	switch node.Kind {
	case yaml.ScalarNode:
		action.Type = ast.ActionType(node.Value)
		return action
	case yaml.MappingNode:
	default:
		b.errs.AddError(rulesErrors.ErrorTypeStructural,
			fmt.Sprintf("action must be a name or mapping, got %s", kindName(node.Kind)), b.loc(node))
		return nil
	}

	for _, kv := range mappingPairs(node) {
		if kv.key.Value == "type" {
			s, _ := b.scalarString(kv.value, "action type")
			action.Type = ast.ActionType(s)
			continue
		}
		action.Parameters[kv.key.Value] = b.buildValue(resolve(kv.value))
	}

	if action.Type == "" {
		b.errs.AddError(rulesErrors.ErrorTypeStructural, "action has no 'type'", action.Location)
		return nil
	}
	return action
}

func (b *builder) buildValue(node *yaml.Node) *ast.ValueNode {
	v := &ast.ValueNode{Location: b.loc(node)}

	switch node.Kind {
	case yaml.SequenceNode:
		items := make([]*ast.ValueNode, 0, len(node.Content))
		for _, item := range node.Content {
			items = append(items, b.buildValue(resolve(item)))
		}
		v.Type = ast.ValueTypeArray
		v.Value = items
		return v

	case yaml.ScalarNode:
		switch node.Tag {
		case "!!null":
			v.Type = ast.ValueTypeNull
		case "!!bool":
			var flag bool
			if err := node.Decode(&flag); err != nil {
				b.errs.AddError(rulesErrors.ErrorTypeStructural,
					fmt.Sprintf("invalid boolean %q", node.Value), v.Location)
			}
			v.Type = ast.ValueTypeBoolean
			v.Value = flag
		case "!!int", "!!float":
			v.Type = ast.ValueTypeNumber
			v.Value = strings.ReplaceAll(node.Value, "_", "")
		default:
			v.Type = ast.ValueTypeString
			v.Value = node.Value
		}
		return v

	default:
		b.errs.AddError(rulesErrors.ErrorTypeStructural,
			fmt.Sprintf("value must be a scalar or list, got %s", kindName(node.Kind)), v.Location)
		v.Type = ast.ValueTypeNull
		return v
	}
}

// resolve follows YAML aliases.
func resolve(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}
