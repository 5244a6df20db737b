package api

import (
	"net/http"

	"github.com/foruapp/foru/internal/composition"
	"github.com/foruapp/foru/internal/drafts"
	"github.com/foruapp/foru/internal/validation"
)

// DraftsHandler exposes the composition operations on server-side drafts.
type DraftsHandler struct {
	Drafts    *drafts.Service
	Validator *validation.Validator
}

type setCountRequest struct {
	Count *int `json:"count" validate:"required,gte=0"`
}

// Create handles POST /api/drafts.
func (h *DraftsHandler) Create(w http.ResponseWriter, r *http.Request) {
	d, err := h.Drafts.Create(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, d)
}

// Get handles GET /api/drafts/{id}.
func (h *DraftsHandler) Get(w http.ResponseWriter, r *http.Request) {
	d, err := h.Drafts.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, d)
}

// Discard handles DELETE /api/drafts/{id}.
func (h *DraftsHandler) Discard(w http.ResponseWriter, r *http.Request) {
	if err := h.Drafts.Discard(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetCount handles PUT /api/drafts/{id}/flowers/{flowerId}.
func (h *DraftsHandler) SetCount(w http.ResponseWriter, r *http.Request) {
	var req setCountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Validator.Validate(req); err != nil {
		writeError(w, r, err)
		return
	}

	d, err := h.Drafts.SetCount(r.Context(), r.PathValue("id"), r.PathValue("flowerId"), *req.Count)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, d)
}

// UpdateItem handles PATCH /api/drafts/{id}/items/{itemId}.
func (h *DraftsHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var patch composition.ItemPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}

	d, err := h.Drafts.UpdateItem(r.Context(), r.PathValue("id"), r.PathValue("itemId"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, d)
}

// DeleteItem handles DELETE /api/drafts/{id}/items/{itemId}.
func (h *DraftsHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	d, err := h.Drafts.DeleteItem(r.Context(), r.PathValue("id"), r.PathValue("itemId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, d)
}
