// Package handlers implements the HTTP endpoints of the rule host API.
//
// Endpoints:
//   - POST /api/rules/deploy: {"ruleSetName": "...", "drlContent": "..."}
//     returns a plain-text status line
//   - GET /api/rules/active: {"count": n, "ruleSets": [...]}
//   - POST /api/rules/evaluate: {"ruleSetName": "...", "facts": {...}}
//     returns {"isMatch", "outcome", "reasons", "facts"}
package handlers
