// Package validator checks parsed rule sets before they are compiled.
//
// Validation runs three passes:
//
//   - structural: rule names are unique within the rule set, agenda groups are
//     not blank
//   - semantic: pattern fact kinds exist, fields exist on closed-schema facts,
//     operators are known and literals fit the operator and field (enum values,
//     decimal literals, regular expressions)
//   - actions: action types are known and carry the parameters they need
//
// Semantic and action passes are skipped when the structural pass fails, to
// avoid cascades of follow-on errors.
package validator
