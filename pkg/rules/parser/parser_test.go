package parser

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/b3ckham/Orchestrator/pkg/rules/ast"
	rulesErrors "github.com/b3ckham/Orchestrator/pkg/rules/errors"
)

const kycSource = `package: kyc
description: KYC review rules
rules:
  - name: flag-high-risk-pending-kyc
    agenda_group: kyc
    salience: 10
    when:
      - fact: Compliance
        conditions:
          - field: riskLevel
            operator: "=="
            value: High
          - field: kycStatus
            operator: in
            value: [Pending, Rejected]
      - fact: Wallet
        conditions:
          any:
            - field: balance
              operator: ">="
              value: 1000.50
            - not:
                field: status
                operator: "=="
                value: Active
    then:
      - match
      - type: outcome
        value: REVIEW
      - type: reason
        value: high-risk-pending
  - name: disabled-rule
    enabled: false
    when:
      - fact: Member
    then:
      - halt
`

func TestParseBytes(t *testing.T) {
	rs, err := New().ParseBytes([]byte(kycSource), "kyc")
	if err != nil {
		t.Fatalf("ParseBytes() error = %v, want nil", err)
	}

	if rs.Name != "kyc" || rs.Package != "kyc" {
		t.Errorf("Name/Package = %q/%q, want kyc/kyc", rs.Name, rs.Package)
	}
	if len(rs.Rules) != 2 {
		t.Fatalf("len(Rules) = %d, want 2", len(rs.Rules))
	}

	rule := rs.Rules[0]
	if rule.Name != "flag-high-risk-pending-kyc" {
		t.Errorf("Name = %q", rule.Name)
	}
	if rule.AgendaGroup != "kyc" {
		t.Errorf("AgendaGroup = %q, want kyc", rule.AgendaGroup)
	}
	if rule.Salience != 10 {
		t.Errorf("Salience = %d, want 10", rule.Salience)
	}
	if !rule.Enabled {
		t.Error("Enabled = false, want true by default")
	}
	if rule.Location.Line != 4 {
		t.Errorf("Location.Line = %d, want 4", rule.Location.Line)
	}

	if len(rule.Patterns) != 2 {
		t.Fatalf("len(Patterns) = %d, want 2", len(rule.Patterns))
	}
	compliance := rule.Patterns[0]
	if compliance.Fact != "Compliance" {
		t.Errorf("Patterns[0].Fact = %q", compliance.Fact)
	}
	if compliance.Conditions.Type != ast.ConditionTypeAll || len(compliance.Conditions.Children) != 2 {
		t.Fatalf("list conditions should become an all node with 2 children, got %+v", compliance.Conditions)
	}
	in := compliance.Conditions.Children[1]
	if in.Operator != ast.OperatorIn || in.Value.Type != ast.ValueTypeArray {
		t.Errorf("in condition = %+v", in)
	}

	wallet := rule.Patterns[1].Conditions
	if wallet.Type != ast.ConditionTypeAny || len(wallet.Children) != 2 {
		t.Fatalf("wallet conditions = %+v, want any with 2 children", wallet)
	}
	if got := wallet.Children[0].Value; got.Type != ast.ValueTypeNumber || got.Value != "1000.50" {
		t.Errorf("numeric literal = %+v, want number 1000.50 kept as text", got)
	}
	if wallet.Children[1].Type != ast.ConditionTypeNot {
		t.Errorf("second child type = %q, want not", wallet.Children[1].Type)
	}

	if len(rule.Actions) != 3 {
		t.Fatalf("len(Actions) = %d, want 3", len(rule.Actions))
	}
	if rule.Actions[0].Type != ast.ActionTypeMatch {
		t.Errorf("shorthand action type = %q, want match", rule.Actions[0].Type)
	}
	if got := rule.Actions[1].GetStringParameter("value"); got != "REVIEW" {
		t.Errorf("outcome value = %q, want REVIEW", got)
	}

	disabled := rs.Rules[1]
	if disabled.Enabled {
		t.Error("disabled-rule Enabled = true, want false")
	}
	if disabled.AgendaGroup != ast.DefaultAgendaGroup {
		t.Errorf("AgendaGroup = %q, want %q", disabled.AgendaGroup, ast.DefaultAgendaGroup)
	}
	if disabled.Patterns[0].Conditions != nil {
		t.Error("pattern without conditions should have nil Conditions")
	}
	if got := len(rs.EnabledRules()); got != 1 {
		t.Errorf("EnabledRules() = %d, want 1", got)
	}
}

func TestParseBytes_Errors(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		wantType rulesErrors.ErrorType
		wantMsg  string
		wantLine int
	}{
		{
			name:     "empty source",
			source:   "   \n",
			wantType: rulesErrors.ErrorTypeStructural,
			wantMsg:  "empty",
		},
		{
			name:     "yaml syntax",
			source:   "rules:\n  - name: a\n   then: [",
			wantType: rulesErrors.ErrorTypeSyntax,
			wantMsg:  "YAML parsing failed",
		},
		{
			name:     "missing rules",
			source:   "package: x\n",
			wantType: rulesErrors.ErrorTypeStructural,
			wantMsg:  "no 'rules' list",
		},
		{
			name:     "unknown rule key",
			source:   "rules:\n  - name: a\n    salince: 3\n    then: [match]\n",
			wantType: rulesErrors.ErrorTypeStructural,
			wantMsg:  "unknown rule field \"salince\"",
			wantLine: 3,
		},
		{
			name:     "missing then",
			source:   "rules:\n  - name: a\n",
			wantType: rulesErrors.ErrorTypeStructural,
			wantMsg:  "no 'then' actions",
			wantLine: 2,
		},
		{
			name:     "bad salience",
			source:   "rules:\n  - name: a\n    salience: high\n    then: [match]\n",
			wantType: rulesErrors.ErrorTypeStructural,
			wantMsg:  "salience must be an integer",
			wantLine: 3,
		},
		{
			name:     "condition without operator",
			source:   "rules:\n  - name: a\n    when:\n      - fact: Wallet\n        conditions:\n          - field: status\n            value: Active\n    then: [match]\n",
			wantType: rulesErrors.ErrorTypeStructural,
			wantMsg:  "no 'operator'",
			wantLine: 6,
		},
		{
			name:     "two documents",
			source:   "rules: []\n---\nrules: []\n",
			wantType: rulesErrors.ErrorTypeStructural,
			wantMsg:  "exactly one YAML document",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().ParseBytes([]byte(tt.source), "broken")
			if err == nil {
				t.Fatal("ParseBytes() error = nil, want error")
			}

			var first *rulesErrors.Error
			var list *rulesErrors.ErrorList
			switch {
			case errors.As(err, &list):
				first = list.First()
			case errors.As(err, &first):
			default:
				t.Fatalf("error type = %T, want *errors.Error or *errors.ErrorList", err)
			}

			if first.Type != tt.wantType {
				t.Errorf("Type = %q, want %q (%v)", first.Type, tt.wantType, err)
			}
			if !strings.Contains(first.Message, tt.wantMsg) {
				t.Errorf("Message = %q, want it to contain %q", first.Message, tt.wantMsg)
			}
			if tt.wantLine > 0 && first.Location.Line != tt.wantLine {
				t.Errorf("Location.Line = %d, want %d", first.Location.Line, tt.wantLine)
			}
			if first.Location.File != "broken" {
				t.Errorf("Location.File = %q, want broken", first.Location.File)
			}
		})
	}
}

func TestParseBytes_MaxSourceBytes(t *testing.T) {
	_, err := New().WithMaxSourceBytes(16).ParseString(kycSource, "kyc")
	if err == nil || !strings.Contains(err.Error(), "exceeds maximum") {
		t.Fatalf("ParseString() error = %v, want size error", err)
	}
}

func TestParseBytes_MaxDepth(t *testing.T) {
	src := `rules:
  - name: deep
    when:
      - fact: Wallet
        conditions:
          not:
            not:
              not:
                field: status
                operator: "=="
                value: Active
    then: [match]
`
	if _, err := New().WithMaxDepth(2).ParseString(src, "deep"); err == nil {
		t.Fatal("ParseString() error = nil, want depth error")
	}
	if _, err := New().ParseString(src, "deep"); err != nil {
		t.Fatalf("ParseString() with default depth error = %v, want nil", err)
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kyc.yaml")
	if err := os.WriteFile(path, []byte(kycSource), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	rs, err := New().ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() error = %v, want nil", err)
	}
	if rs.Name != "kyc" {
		t.Errorf("Name = %q, want kyc", rs.Name)
	}

	if _, err := New().ParseFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("ParseFile() on missing file error = nil, want error")
	}
}
