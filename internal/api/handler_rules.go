package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"rulegate/internal/domain"
)

type ruleResponse struct {
	Relation  string          `json:"relation"`
	Operation string          `json:"operation"`
	Columns   []string        `json:"columns,omitempty"`
	KeyColumn string          `json:"key_column,omitempty"`
	Predicate json.RawMessage `json:"predicate,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type defineRuleBody struct {
	Relation  string          `json:"relation"`
	Operation string          `json:"operation"`
	Columns   []string        `json:"columns,omitempty"`
	KeyColumn string          `json:"key_column,omitempty"`
	Predicate json.RawMessage `json:"predicate,omitempty"`
}

func ruleToAPI(r domain.Rule) ruleResponse {
	return ruleResponse{
		Relation:  r.Relation,
		Operation: string(r.Operation),
		Columns:   r.Columns,
		KeyColumn: r.KeyColumn,
		Predicate: r.Predicate,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (h *Handler) listRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.rules.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]ruleResponse, len(rules))
	for i, rule := range rules {
		out[i] = ruleToAPI(rule)
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) defineRule(w http.ResponseWriter, r *http.Request) {
	var body defineRuleBody
	if err := decodeBody(r, &body); err != nil {
		h.writeError(w, domain.ErrValidation("invalid request body: %v", err))
		return
	}
	report, err := h.rules.Define(r.Context(), domain.DefineRuleRequest{
		Relation:  body.Relation,
		Operation: domain.Operation(body.Operation),
		Columns:   body.Columns,
		KeyColumn: body.KeyColumn,
		Predicate: body.Predicate,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, reportToAPI(report))
}

func (h *Handler) listRelationRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.rules.ListForRelation(r.Context(), chi.URLParam(r, "relation"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]ruleResponse, len(rules))
	for i, rule := range rules {
		out[i] = ruleToAPI(rule)
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) dropRules(w http.ResponseWriter, r *http.Request) {
	if err := h.rules.Drop(r.Context(), chi.URLParam(r, "relation")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) recompileAll(w http.ResponseWriter, r *http.Request) {
	if err := h.rules.RecompileAll(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := h.audit.List(r.Context(), 100)
	if err != nil {
		h.writeError(w, err)
		return
	}
	type auditResponse struct {
		Principal string    `json:"principal"`
		Action    string    `json:"action"`
		Target    string    `json:"target,omitempty"`
		Status    string    `json:"status"`
		Error     string    `json:"error,omitempty"`
		CreatedAt time.Time `json:"created_at"`
	}
	out := make([]auditResponse, len(entries))
	for i, e := range entries {
		out[i] = auditResponse{
			Principal: e.PrincipalName,
			Action:    e.Action,
			Target:    e.Target,
			Status:    e.Status,
			Error:     e.ErrorMessage,
			CreatedAt: e.CreatedAt,
		}
	}
	h.writeJSON(w, http.StatusOK, out)
}
