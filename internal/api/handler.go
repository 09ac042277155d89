// Package api provides the HTTP surface of the rule compiler: claim and
// rule administration plus the governed data access endpoints.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rulegate/internal/engine"
	"rulegate/internal/service/authz"
)

// Handler holds the services behind the HTTP API.
type Handler struct {
	claims *authz.ClaimService
	rules  *authz.RuleService
	audit  *authz.AuditService
	access *engine.Access
	logger *slog.Logger
}

// NewHandler creates a Handler with all required service dependencies.
func NewHandler(claims *authz.ClaimService, rules *authz.RuleService, audit *authz.AuditService, access *engine.Access, logger *slog.Logger) *Handler {
	return &Handler{
		claims: claims,
		rules:  rules,
		audit:  audit,
		access: access,
		logger: logger.With("component", "api"),
	}
}

// Routes mounts all API endpoints on a fresh router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/v1", func(r chi.Router) {
		r.Route("/claims", func(r chi.Router) {
			r.Get("/", h.listClaims)
			r.Post("/", h.defineClaim)
			r.Get("/{name}", h.getClaim)
			r.Delete("/{name}", h.dropClaim)
		})
		r.Route("/rules", func(r chi.Router) {
			r.Get("/", h.listRules)
			r.Post("/", h.defineRule)
			r.Get("/{relation}", h.listRelationRules)
			r.Delete("/{relation}", h.dropRules)
		})
		r.Post("/recompile", h.recompileAll)
		r.Get("/audit", h.listAudit)

		r.Route("/data/{relation}", func(r chi.Router) {
			r.Get("/", h.listRows)
			r.Post("/", h.insertRow)
			r.Get("/fetch", h.fetchRows)
			r.Patch("/{id}", h.updateRow)
			r.Delete("/{id}", h.deleteRow)
		})
	})

	return r
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := httpStatusFromDomainError(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("internal error", "error", err)
	}
	h.writeJSON(w, status, map[string]interface{}{
		"code":    status,
		"message": err.Error(),
	})
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
