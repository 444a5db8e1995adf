package errors

import (
	"strings"
	"testing"

	"github.com/b3ckham/Orchestrator/pkg/rules/ast"
)

func TestErrorList(t *testing.T) {
	el := NewErrorList()
	if el.ToError() != nil {
		t.Fatalf("ToError() on empty list = %v, want nil", el.ToError())
	}

	loc := ast.Location{File: "kyc", Line: 4, Column: 7}
	el.AddError(ErrorTypeSemantic, "unknown fact \"Walet\"", loc)
	el.AddErrorWithSuggestion(ErrorTypeValidation, "unknown operator \"=\"", loc, "did you mean '=='?")

	if el.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", el.Count())
	}
	if !el.HasErrorType(ErrorTypeValidation) {
		t.Error("HasErrorType(validation) = false, want true")
	}
	if got := len(el.ByType(ErrorTypeSemantic)); got != 1 {
		t.Errorf("ByType(semantic) returned %d errors, want 1", got)
	}

	msg := el.Error()
	for _, want := range []string{"2 errors", "kyc:4:7", "did you mean"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, want it to contain %q", msg, want)
		}
	}
}

func TestSuggest(t *testing.T) {
	tests := []struct {
		name    string
		unknown string
		valid   []string
		want    string
	}{
		{"close match", "riskLevl", []string{"riskLevel", "kycStatus"}, "did you mean 'riskLevel'?"},
		{"case insensitive", "WALLET", []string{"Member", "Wallet"}, "did you mean 'Wallet'?"},
		{"no close match", "zzzzzzzz", []string{"Low", "High"}, "expected one of: Low, High"},
		{"empty", "x", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Suggest(tt.unknown, tt.valid); got != tt.want {
				t.Errorf("Suggest(%q) = %q, want %q", tt.unknown, got, tt.want)
			}
		})
	}
}
