package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"rulegate/internal/domain"
)

type claimResponse struct {
	Name      string    `json:"name"`
	Query     string    `json:"query"`
	View      string    `json:"view"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type defineClaimBody struct {
	Name  string `json:"name"`
	Query string `json:"query"`
}

type compileReportResponse struct {
	Artifacts    []string              `json:"artifacts"`
	Degradations []degradationResponse `json:"degradations,omitempty"`
}

type degradationResponse struct {
	Artifact string `json:"artifact"`
	Reason   string `json:"reason"`
}

func reportToAPI(r *domain.CompileReport) compileReportResponse {
	out := compileReportResponse{Artifacts: r.Artifacts}
	for _, d := range r.Degradations {
		out.Degradations = append(out.Degradations, degradationResponse{
			Artifact: string(d.Artifact),
			Reason:   d.Reason,
		})
	}
	return out
}

func claimToAPI(c domain.Claim) claimResponse {
	return claimResponse{
		Name:      c.Name,
		Query:     c.Query,
		View:      c.ViewName(),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func (h *Handler) listClaims(w http.ResponseWriter, r *http.Request) {
	claims, err := h.claims.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]claimResponse, len(claims))
	for i, c := range claims {
		out[i] = claimToAPI(c)
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) defineClaim(w http.ResponseWriter, r *http.Request) {
	var body defineClaimBody
	if err := decodeBody(r, &body); err != nil {
		h.writeError(w, domain.ErrValidation("invalid request body: %v", err))
		return
	}
	report, err := h.claims.Define(r.Context(), domain.DefineClaimRequest{
		Name:  body.Name,
		Query: body.Query,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, reportToAPI(report))
}

func (h *Handler) getClaim(w http.ResponseWriter, r *http.Request) {
	c, err := h.claims.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, claimToAPI(*c))
}

func (h *Handler) dropClaim(w http.ResponseWriter, r *http.Request) {
	if err := h.claims.Drop(r.Context(), chi.URLParam(r, "name")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
