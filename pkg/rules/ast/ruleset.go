package ast

// DefaultAgendaGroup is the group rules belong to when none is declared.
// Rules in it fire when a session has no focus.
const DefaultAgendaGroup = "MAIN"

// RuleSet is the root node of one parsed rule-set source.
type RuleSet struct {
	Name        string   // Repository key the source was deployed under
	Package     string   // Optional package label
	Description string   // Optional description
	Rules       []*Rule  // Rules in declaration order
	Location    Location // Source location of the document
}

// Rule is a single production: when all Patterns match, Actions run.
type Rule struct {
	Name        string
	Description string
	AgendaGroup string
	Salience    int
	Enabled     bool
	Patterns    []*Pattern
	Actions     []*Action
	Location    Location
}

// Pattern binds a fact kind to a condition tree evaluated against that fact.
// A nil Conditions matches whenever the fact is present.
type Pattern struct {
	Fact       string
	Conditions *ConditionNode
	Location   Location
}

// EnabledRules returns the rules that are enabled, in declaration order.
func (rs *RuleSet) EnabledRules() []*Rule {
	out := make([]*Rule, 0, len(rs.Rules))
	for _, r := range rs.Rules {
		if r.Enabled {
			out = append(out, r)
		}
	}
	return out
}

// AgendaGroups returns the distinct agenda groups used by the rule set,
// in first-use order.
func (rs *RuleSet) AgendaGroups() []string {
	seen := make(map[string]bool)
	var groups []string
	for _, r := range rs.Rules {
		if !seen[r.AgendaGroup] {
			seen[r.AgendaGroup] = true
			groups = append(groups, r.AgendaGroup)
		}
	}
	return groups
}

// HasScripts reports whether any action of the rule executes a script.
func (r *Rule) HasScripts() bool {
	for _, a := range r.Actions {
		if a.Type == ActionTypeScript {
			return true
		}
	}
	return false
}
