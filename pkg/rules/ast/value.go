package ast

import "fmt"

// ValueType represents the type of a literal value.
type ValueType string

const (
	ValueTypeString  ValueType = "string"
	ValueTypeNumber  ValueType = "number" // Stored as its decimal text
	ValueTypeBoolean ValueType = "boolean"
	ValueTypeArray   ValueType = "array"
	ValueTypeNull    ValueType = "null"
)

// ValueNode is a literal in a condition or action.
//
// Numbers keep the literal text from the source (e.g. "1000.50") so that
// decimal comparisons do not go through float64.
type ValueNode struct {
	Type     ValueType
	Value    any // string, bool, []*ValueNode or nil
	Location Location
}

// String returns a readable form of the value.
func (v *ValueNode) String() string {
	if v == nil {
		return "null"
	}
	switch v.Type {
	case ValueTypeString:
		return fmt.Sprintf("%q", v.Value)
	case ValueTypeArray:
		items, _ := v.Value.([]*ValueNode)
		s := "["
		for i, item := range items {
			if i > 0 {
				s += ", "
			}
			s += item.String()
		}
		return s + "]"
	case ValueTypeNull:
		return "null"
	default:
		return fmt.Sprintf("%v", v.Value)
	}
}

// Interface converts the node into plain Go values.
// Numbers are returned as their literal string wrapped in Number.
func (v *ValueNode) Interface() any {
	if v == nil {
		return nil
	}
	switch v.Type {
	case ValueTypeArray:
		items, _ := v.Value.([]*ValueNode)
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = item.Interface()
		}
		return out
	case ValueTypeNumber:
		s, _ := v.Value.(string)
		return Number(s)
	default:
		return v.Value
	}
}

// Number is a numeric literal kept in its source text form.
type Number string
