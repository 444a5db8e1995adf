package ast

// ActionType represents the type of a consequence action.
type ActionType string

const (
	ActionTypeMatch   ActionType = "match"   // Mark the evaluation as matched
	ActionTypeOutcome ActionType = "outcome" // Set the outcome label
	ActionTypeReason  ActionType = "reason"  // Append a reason
	ActionTypeScript  ActionType = "script"  // Run an ECMAScript snippet
	ActionTypeHalt    ActionType = "halt"    // Stop the firing cycle
)

// ActionTypes lists every supported action type.
var ActionTypes = []ActionType{
	ActionTypeMatch, ActionTypeOutcome, ActionTypeReason, ActionTypeScript, ActionTypeHalt,
}

// IsValid reports whether t is a supported action type.
func (t ActionType) IsValid() bool {
	for _, known := range ActionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Action is one consequence of a rule.
type Action struct {
	Type       ActionType
	Parameters map[string]*ValueNode
	Location   Location
}

// GetParameter returns the named parameter or nil.
func (a *Action) GetParameter(key string) *ValueNode {
	return a.Parameters[key]
}

// HasParameter reports whether the named parameter is set.
func (a *Action) HasParameter(key string) bool {
	_, ok := a.Parameters[key]
	return ok
}

// GetStringParameter returns the named parameter if it is a string.
func (a *Action) GetStringParameter(key string) string {
	if val := a.GetParameter(key); val != nil && val.Type == ValueTypeString {
		if str, ok := val.Value.(string); ok {
			return str
		}
	}
	return ""
}

// GetBoolParameter returns the named parameter if it is a boolean.
func (a *Action) GetBoolParameter(key string) (bool, bool) {
	if val := a.GetParameter(key); val != nil && val.Type == ValueTypeBoolean {
		b, ok := val.Value.(bool)
		return b, ok
	}
	return false, false
}
