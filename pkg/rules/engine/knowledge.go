package engine

import (
	"sort"
	"time"

	"github.com/b3ckham/Orchestrator/pkg/rules"
)

// KnowledgeBase is the compiled form of a whole corpus. It is immutable and
// safe to share between any number of sessions.
type KnowledgeBase struct {
	id       string
	version  string
	builtAt  time.Time
	ruleSets []string
	rules    []*compiledRule
	groups   map[string][]*compiledRule // salience desc, then corpus order
	scripts  int
}

var _ rules.Artifact = (*KnowledgeBase)(nil)

func newKnowledgeBase(id, version string, ruleSets []string, compiled []*compiledRule) *KnowledgeBase {
	kb := &KnowledgeBase{
		id:       id,
		version:  version,
		builtAt:  time.Now(),
		ruleSets: ruleSets,
		rules:    compiled,
		groups:   make(map[string][]*compiledRule),
	}

	for i, r := range compiled {
		r.order = i
		kb.groups[r.group] = append(kb.groups[r.group], r)
		for _, a := range r.actions {
			if a.program != nil {
				kb.scripts++
			}
		}
	}
	for _, group := range kb.groups {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].salience > group[j].salience
		})
	}

	return kb
}

// ID implements rules.Artifact.
func (kb *KnowledgeBase) ID() string { return kb.id }

// Version implements rules.Artifact.
func (kb *KnowledgeBase) Version() string { return kb.version }

// BuiltAt implements rules.Artifact.
func (kb *KnowledgeBase) BuiltAt() time.Time { return kb.builtAt }

// RuleSets implements rules.Artifact.
func (kb *KnowledgeBase) RuleSets() []string {
	out := make([]string, len(kb.ruleSets))
	copy(out, kb.ruleSets)
	return out
}

// RuleCount implements rules.Artifact.
func (kb *KnowledgeBase) RuleCount() int { return len(kb.rules) }

// AgendaGroups returns the sorted names of all agenda groups.
func (kb *KnowledgeBase) AgendaGroups() []string {
	groups := make([]string, 0, len(kb.groups))
	for g := range kb.groups {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}

// RuleNames returns the rule names of a group in firing priority order.
func (kb *KnowledgeBase) RuleNames(group string) []string {
	rs := kb.groups[group]
	names := make([]string, len(rs))
	for i, r := range rs {
		names[i] = r.name
	}
	return names
}

// ScriptCount returns the number of compiled script actions.
func (kb *KnowledgeBase) ScriptCount() int { return kb.scripts }
