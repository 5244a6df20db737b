package api

import (
	"database/sql"
	"log/slog"
	"math/rand/v2"
	"net/http"

	domainerrors "github.com/foruapp/foru/internal/errors"
	"github.com/foruapp/foru/internal/email"
	"github.com/foruapp/foru/internal/imagegen"
	"github.com/foruapp/foru/internal/store"
	"github.com/foruapp/foru/internal/validation"
)

// ShareHandler handles the endpoints around sharing a creation.
type ShareHandler struct {
	DB        *sql.DB
	Email     *email.Service
	Images    *imagegen.Client
	Validator *validation.Validator
	BaseURL   string
}

type generateImageRequest struct {
	Prompt string `json:"prompt"`
}

type generateImageResponse struct {
	ImageURL string `json:"imageUrl"`
}

// GenerateImage handles POST /api/generate-image.
func (h *ShareHandler) GenerateImage(w http.ResponseWriter, r *http.Request) {
	var req generateImageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	url, err := h.Images.URL(req.Prompt, rand.Int64N(1_000_000))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, generateImageResponse{ImageURL: url})
}

type shareNotifyRequest struct {
	Email   string `json:"email" validate:"required,email"`
	BbqName string `json:"bbqName" validate:"required,max=100"`
	ShareID string `json:"shareId" validate:"omitempty,max=32"`
}

// Notify handles POST /api/share-notify. When a share id is given the
// email links to it and the record is marked as sent.
func (h *ShareHandler) Notify(w http.ResponseWriter, r *http.Request) {
	var req shareNotifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Validator.Validate(req); err != nil {
		writeError(w, r, err)
		return
	}

	n := email.ShareNotification{SenderName: req.BbqName}
	if req.ShareID != "" {
		b, err := store.GetBouquet(r.Context(), h.DB, req.ShareID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if b == nil {
			writeError(w, r, domainerrors.NotFound("bouquet not found"))
			return
		}
		n.ShareURL = h.BaseURL + "/share/" + b.ID
	}

	if h.Email == nil || !h.Email.IsConfigured() {
		writeError(w, r, domainerrors.Upstream("email is not configured", nil))
		return
	}
	if err := h.Email.SendShareNotification(req.Email, n); err != nil {
		writeError(w, r, domainerrors.Upstream("failed to send email", err))
		return
	}

	if req.ShareID != "" {
		if err := store.MarkBouquetSent(r.Context(), h.DB, req.ShareID); err != nil {
			slog.Warn("failed to mark bouquet sent", "id", req.ShareID, "error", err)
		}
	}

	slog.Info("share notification sent", "share", req.ShareID)
	jsonResponse(w, http.StatusOK, map[string]bool{"sent": true})
}
