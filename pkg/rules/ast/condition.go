package ast

// ConditionType represents the type of a condition node.
type ConditionType string

const (
	ConditionTypeSimple ConditionType = "simple" // field op value
	ConditionTypeAll    ConditionType = "all"    // AND of children
	ConditionTypeAny    ConditionType = "any"    // OR of children
	ConditionTypeNot    ConditionType = "not"    // NOT of the single child
)

// Operator represents a comparison operator.
type Operator string

const (
	OperatorEqual        Operator = "=="
	OperatorNotEqual     Operator = "!="
	OperatorLessThan     Operator = "<"
	OperatorGreaterThan  Operator = ">"
	OperatorLessEqual    Operator = "<="
	OperatorGreaterEqual Operator = ">="
	OperatorContains     Operator = "contains"
	OperatorMatches      Operator = "matches" // Regex match
	OperatorStartsWith   Operator = "starts_with"
	OperatorEndsWith     Operator = "ends_with"
	OperatorIn           Operator = "in"
	OperatorNotIn        Operator = "not_in"
	OperatorExists       Operator = "exists" // Value is a boolean
)

// Operators lists every supported operator.
var Operators = []Operator{
	OperatorEqual, OperatorNotEqual,
	OperatorLessThan, OperatorGreaterThan, OperatorLessEqual, OperatorGreaterEqual,
	OperatorContains, OperatorMatches, OperatorStartsWith, OperatorEndsWith,
	OperatorIn, OperatorNotIn, OperatorExists,
}

// IsValid reports whether op is a supported operator.
func (op Operator) IsValid() bool {
	for _, known := range Operators {
		if op == known {
			return true
		}
	}
	return false
}

// IsOrdering reports whether op compares magnitudes.
func (op Operator) IsOrdering() bool {
	switch op {
	case OperatorLessThan, OperatorGreaterThan, OperatorLessEqual, OperatorGreaterEqual:
		return true
	}
	return false
}

// ConditionNode is a node of a pattern's condition tree.
type ConditionNode struct {
	Type     ConditionType
	Field    string     // Simple only
	Operator Operator   // Simple only
	Value    *ValueNode // Simple only
	Children []*ConditionNode
	Location Location
}

// IsSimple reports whether the node is a leaf comparison.
func (c *ConditionNode) IsSimple() bool {
	return c.Type == ConditionTypeSimple
}

// IsLogical reports whether the node combines children.
func (c *ConditionNode) IsLogical() bool {
	return c.Type == ConditionTypeAll || c.Type == ConditionTypeAny || c.Type == ConditionTypeNot
}

// Walk calls fn for c and every descendant, depth first.
func (c *ConditionNode) Walk(fn func(*ConditionNode)) {
	if c == nil {
		return
	}
	fn(c)
	for _, child := range c.Children {
		child.Walk(fn)
	}
}
