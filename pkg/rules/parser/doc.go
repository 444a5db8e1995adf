// Package parser turns rule-set sources into ast.RuleSet values.
//
// Sources are YAML documents:
//
//	package: kyc
//	rules:
//	  - name: flag-high-risk-pending-kyc
//	    agenda_group: kyc
//	    salience: 10
//	    when:
//	      - fact: Compliance
//	        conditions:
//	          - field: riskLevel
//	            operator: "=="
//	            value: High
//	    then:
//	      - match
//	      - type: outcome
//	        value: REVIEW
//	      - type: reason
//	        value: high-risk-pending
//
// The parser works on yaml.Node trees so every AST node carries the line and
// column it came from. Structural problems (unknown keys, wrong node kinds,
// missing names) are collected into an errors.ErrorList; semantic checks
// such as known fact kinds and field names belong to the validator package.
package parser
