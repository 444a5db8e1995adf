package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/b3ckham/Orchestrator/pkg/ruleset"
)

// RulesHandler serves the rule deploy, listing and evaluation endpoints.
type RulesHandler struct {
	service RuleService
	logger  *slog.Logger
}

// NewRulesHandler creates a handler over service.
func NewRulesHandler(service RuleService, logger *slog.Logger) *RulesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RulesHandler{
		service: service,
		logger:  logger.With("component", "server.rules"),
	}
}

// Deploy handles POST /api/rules/deploy. It answers with a plain-text status
// line: 200 on success, 422 with the compiler diagnostics when the rule set
// does not compile, 400 for malformed requests.
func (h *RulesHandler) Deploy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeText(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req DeployRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if req.RuleSetName == "" {
		writeText(w, http.StatusBadRequest, "ruleSetName is required")
		return
	}
	if req.Source() == "" {
		writeText(w, http.StatusBadRequest, "drlContent or ruleSource is required")
		return
	}

	result, err := h.service.Deploy(r.Context(), req.RuleSetName, req.Source())
	if err != nil {
		var compileErr *ruleset.CompilationError
		var repoErr *ruleset.RepositoryError
		switch {
		case errors.As(err, &compileErr):
			writeText(w, http.StatusUnprocessableEntity, compileErr.Error())
		case errors.As(err, &repoErr):
			writeText(w, http.StatusBadRequest, repoErr.Error())
		default:
			h.logger.ErrorContext(r.Context(), "deploy failed", "error", err)
			writeText(w, http.StatusInternalServerError, fmt.Sprintf("Deployment failed: %v", err))
		}
		return
	}

	writeText(w, http.StatusOK, result.Message())
}

// Active handles GET /api/rules/active.
func (h *RulesHandler) Active(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeText(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, h.service.ListActive())
}

// Evaluate handles POST /api/rules/evaluate. Once the request decodes, the
// answer is always 200: evaluation failures yield an unmatched outcome.
func (h *RulesHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeText(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req EvaluateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	outcome := h.service.Evaluate(r.Context(), req.RuleSetName, req.Facts)
	writeJSON(w, http.StatusOK, outcome)
}

func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("request body is empty")
	}
	return json.NewDecoder(r.Body).Decode(v)
}

func writeDecodeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeText(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit))
		return
	}
	writeText(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
