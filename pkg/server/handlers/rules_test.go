package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/b3ckham/Orchestrator/pkg/rules/engine"
	"github.com/b3ckham/Orchestrator/pkg/ruleset"
	"github.com/b3ckham/Orchestrator/pkg/server/middleware"
)

const kycRules = `rules:
  - name: flag-high-risk-pending-kyc
    agenda_group: kyc
    when:
      - fact: Compliance
        conditions:
          - field: riskLevel
            operator: "=="
            value: High
          - field: kycStatus
            operator: "=="
            value: Pending
    then:
      - match
      - type: outcome
        value: REVIEW
      - type: reason
        value: high-risk-pending
`

func newTestHandler(t *testing.T) *RulesHandler {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	svc, err := ruleset.NewService(context.Background(), engine.New(nil, logger), ruleset.Options{Logger: logger})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return NewRulesHandler(svc, logger)
}

func deployBody(t *testing.T, req DeployRequest) string {
	t.Helper()
	b, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	return string(b)
}

func TestRulesHandler_Deploy(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		body     string
		wantCode int
		wantBody string
	}{
		{
			name:     "drl content",
			method:   http.MethodPost,
			body:     deployBody(t, DeployRequest{RuleSetName: "kyc", DRLContent: kycRules}),
			wantCode: http.StatusOK,
			wantBody: "RuleSet kyc Deployed Successfully. Active Rules: 1",
		},
		{
			name:     "rule source",
			method:   http.MethodPost,
			body:     deployBody(t, DeployRequest{RuleSetName: "kyc", RuleSource: kycRules}),
			wantCode: http.StatusOK,
			wantBody: "RuleSet kyc Deployed Successfully. Active Rules: 1",
		},
		{
			name:     "compilation error",
			method:   http.MethodPost,
			body:     deployBody(t, DeployRequest{RuleSetName: "kyc", DRLContent: strings.Replace(kycRules, "value: High", "value: Hihg", 1)}),
			wantCode: http.StatusUnprocessableEntity,
			wantBody: "Compilation error: ",
		},
		{
			name:     "missing name",
			method:   http.MethodPost,
			body:     deployBody(t, DeployRequest{DRLContent: kycRules}),
			wantCode: http.StatusBadRequest,
			wantBody: "ruleSetName is required",
		},
		{
			name:     "missing source",
			method:   http.MethodPost,
			body:     deployBody(t, DeployRequest{RuleSetName: "kyc"}),
			wantCode: http.StatusBadRequest,
			wantBody: "drlContent or ruleSource is required",
		},
		{
			name:     "malformed json",
			method:   http.MethodPost,
			body:     "{",
			wantCode: http.StatusBadRequest,
			wantBody: "Invalid request body",
		},
		{
			name:     "wrong method",
			method:   http.MethodGet,
			wantCode: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t)
			req := httptest.NewRequest(tt.method, "/api/rules/deploy", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			h.Deploy(w, req)

			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %q)", w.Code, tt.wantCode, w.Body.String())
			}
			if !strings.HasPrefix(w.Body.String(), tt.wantBody) {
				t.Errorf("body = %q, want prefix %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestRulesHandler_DeployTooLarge(t *testing.T) {
	h := newTestHandler(t)
	body := deployBody(t, DeployRequest{RuleSetName: "kyc", DRLContent: kycRules})

	handler := middleware.BodyLimitMiddleware(64)(http.HandlerFunc(h.Deploy))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/rules/deploy", strings.NewReader(body)))

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", w.Code)
	}
}

func TestRulesHandler_Active(t *testing.T) {
	h := newTestHandler(t)

	w := httptest.NewRecorder()
	h.Deploy(w, httptest.NewRequest(http.MethodPost, "/api/rules/deploy",
		strings.NewReader(deployBody(t, DeployRequest{RuleSetName: "kyc", DRLContent: kycRules}))))
	if w.Code != http.StatusOK {
		t.Fatalf("deploy status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.Active(w, httptest.NewRequest(http.MethodGet, "/api/rules/active", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var got struct {
		Count    int      `json:"count"`
		RuleSets []string `json:"ruleSets"`
		Version  string   `json:"version"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.Count != 1 || got.Version == "" {
		t.Errorf("active = %+v", got)
	}
	if diff := cmp.Diff([]string{"kyc"}, got.RuleSets); diff != "" {
		t.Errorf("ruleSets mismatch (-want +got):\n%s", diff)
	}
}

func TestRulesHandler_Evaluate(t *testing.T) {
	h := newTestHandler(t)
	w := httptest.NewRecorder()
	h.Deploy(w, httptest.NewRequest(http.MethodPost, "/api/rules/deploy",
		strings.NewReader(deployBody(t, DeployRequest{RuleSetName: "kyc", DRLContent: kycRules}))))

	tests := []struct {
		name     string
		body     string
		wantCode int
		want     map[string]any
	}{
		{
			name:     "match",
			body:     `{"ruleSetName":"kyc","facts":{"compliance":{"riskLevel":"High","kycStatus":"Pending"}}}`,
			wantCode: http.StatusOK,
			want: map[string]any{
				"isMatch": true,
				"outcome": "REVIEW",
				"reasons": []any{"high-risk-pending"},
				"facts": map[string]any{
					"Compliance": map[string]any{"riskLevel": "High", "kycStatus": "Pending"},
				},
			},
		},
		{
			name:     "unknown rule set",
			body:     `{"ruleSetName":"missing","facts":{"wallet":{"balance":"12.5","currency":"CNY","status":"Active"}}}`,
			wantCode: http.StatusOK,
			want: map[string]any{
				"isMatch": false,
				"outcome": "",
				"reasons": []any{},
				"facts": map[string]any{
					"Wallet": map[string]any{"balance": 12.5, "currency": "CNY", "status": "Active"},
				},
			},
		},
		{
			name:     "no facts",
			body:     `{"ruleSetName":"kyc"}`,
			wantCode: http.StatusOK,
			want: map[string]any{
				"isMatch": false,
				"outcome": "",
				"reasons": []any{},
				"facts":   map[string]any{},
			},
		},
		{
			name:     "malformed",
			body:     `{"ruleSetName":`,
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.Evaluate(w, httptest.NewRequest(http.MethodPost, "/api/rules/evaluate", strings.NewReader(tt.body)))

			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %q)", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.want == nil {
				return
			}
			var got map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("response mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
