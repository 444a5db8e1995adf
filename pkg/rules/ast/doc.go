// Package ast defines the syntax tree of rule-set sources.
//
// A RuleSet is the parsed form of one deployed source. It holds an ordered
// list of Rules; each Rule has an agenda group, a salience, a list of fact
// Patterns that must all match, and the Actions executed when it fires.
// Every node keeps its Location so that compile diagnostics can point at the
// offending line.
//
// # Basic Usage
//
//	rs, err := parser.New().ParseBytes(src, "kyc")
//	if err != nil {
//	    return err
//	}
//	for _, rule := range rs.Rules {
//	    fmt.Println(rule.Name, rule.AgendaGroup)
//	}
package ast
