package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"rulegate/internal/domain"
)

func (h *Handler) listRows(w http.ResponseWriter, r *http.Request) {
	rows, err := h.access.List(r.Context(), chi.URLParam(r, "relation"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rows)
}

// fetchRows runs the relation's strict accessor. Accessor parameters arrive
// as query-string values.
func (h *Handler) fetchRows(w http.ResponseWriter, r *http.Request) {
	params := make(map[string]interface{})
	for k, vs := range r.URL.Query() {
		if len(vs) > 0 {
			params[k] = vs[0]
		}
	}
	rows, err := h.access.Fetch(r.Context(), chi.URLParam(r, "relation"), params)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rows)
}

func (h *Handler) insertRow(w http.ResponseWriter, r *http.Request) {
	var row map[string]interface{}
	if err := decodeBody(r, &row); err != nil {
		h.writeError(w, domain.ErrValidation("invalid request body: %v", err))
		return
	}
	if err := h.access.Insert(r.Context(), chi.URLParam(r, "relation"), row); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) updateRow(w http.ResponseWriter, r *http.Request) {
	var set map[string]interface{}
	if err := decodeBody(r, &set); err != nil {
		h.writeError(w, domain.ErrValidation("invalid request body: %v", err))
		return
	}
	if err := h.access.Update(r.Context(), chi.URLParam(r, "relation"), chi.URLParam(r, "id"), set); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteRow(w http.ResponseWriter, r *http.Request) {
	if err := h.access.Delete(r.Context(), chi.URLParam(r, "relation"), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
