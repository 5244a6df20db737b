package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/foruapp/foru/internal/auth"
	"github.com/foruapp/foru/internal/catalog"
	"github.com/foruapp/foru/internal/composition"
	domainerrors "github.com/foruapp/foru/internal/errors"
	"github.com/foruapp/foru/internal/model"
	"github.com/foruapp/foru/internal/reveal"
	"github.com/foruapp/foru/internal/store"
	"github.com/foruapp/foru/internal/validation"
)

// BouquetsHandler handles share record endpoints.
type BouquetsHandler struct {
	DB        *sql.DB
	Catalog   *catalog.Catalog
	Validator *validation.Validator
	BaseURL   string
	MaxItems  int
}

type createBouquetRequest struct {
	Type           string             `json:"type" validate:"omitempty,oneof=bouquet letter"`
	Items          []model.PlacedItem `json:"items" validate:"max=500"`
	Letter         string             `json:"letter" validate:"max=10000"`
	Theme          string             `json:"theme" validate:"required,oneof=love birthday"`
	GiftType       string             `json:"giftType" validate:"omitempty,oneof=none envelope scratch code surprise"`
	ScratchMessage string             `json:"scratchMessage" validate:"max=280"`
	SecretCode     string             `json:"secretCode" validate:"max=64"`
	SenderName     string             `json:"senderName" validate:"max=100"`
	RecipientName  string             `json:"recipientName" validate:"max=100"`
	RecipientEmail string             `json:"recipientEmail" validate:"omitempty,email"`
	ScheduledAt    *time.Time         `json:"scheduledAt"`
}

type createBouquetResponse struct {
	ID       string `json:"id"`
	ShareURL string `json:"shareUrl"`
}

// Create handles POST /api/bouquet.
func (h *BouquetsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBouquetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Validator.Validate(req); err != nil {
		writeError(w, r, err)
		return
	}
	if len(req.Items) > h.maxItems() {
		writeError(w, r, domainerrors.Validationf("a bouquet holds at most %d items", h.maxItems()))
		return
	}

	nb := model.NewBouquet{
		Kind:           model.Kind(req.Type),
		Items:          composition.Normalize(req.Items, h.Catalog, h.maxItems(), nil),
		Letter:         req.Letter,
		Theme:          model.Theme(req.Theme),
		GiftType:       model.GiftType(req.GiftType),
		ScratchMessage: req.ScratchMessage,
		SecretCode:     req.SecretCode,
		SenderName:     req.SenderName,
		RecipientName:  req.RecipientName,
		RecipientEmail: req.RecipientEmail,
		ScheduledAt:    req.ScheduledAt,
	}
	if s := auth.CurrentSession(r.Context()); s != nil {
		nb.CreatedBy = &s.UserID
	}

	b, err := store.CreateBouquet(r.Context(), h.DB, nb)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("bouquet created", "id", b.ID, "type", b.Kind, "gift", b.GiftType, "items", len(b.Items))
	jsonResponse(w, http.StatusCreated, createBouquetResponse{ID: b.ID, ShareURL: h.BaseURL + "/share/" + b.ID})
}

// Get handles GET /api/bouquet/{id}.
func (h *BouquetsHandler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := store.GetBouquet(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if b == nil {
		jsonError(w, http.StatusNotFound, "bouquet not found")
		return
	}
	jsonResponse(w, http.StatusOK, b)
}

// List handles GET /api/bouquet?page=&limit=.
func (h *BouquetsHandler) List(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", store.DefaultPageSize)

	result, err := store.ListBouquets(r.Context(), h.DB, page, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, result)
}

type unlockRequest struct {
	Code string `json:"code"`
}

type unlockResponse struct {
	Revealed bool `json:"revealed"`
	// Shake asks the client to play the wrong-code feedback.
	Shake bool `json:"shake,omitempty"`
}

// Unlock handles POST /api/bouquet/{id}/unlock for code-locked gifts. Wrong
// codes can be retried without limit.
func (h *BouquetsHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	var req unlockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	id := r.PathValue("id")
	b, err := store.GetBouquet(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if b == nil {
		jsonError(w, http.StatusNotFound, "bouquet not found")
		return
	}
	if b.GiftType != model.GiftCode {
		writeError(w, r, domainerrors.Validation("this gift is not code-locked"))
		return
	}

	hash, _, err := store.GetBouquetSecretHash(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	m := reveal.New(b.GiftType, reveal.Options{Kind: b.Kind, Secret: reveal.HashMatcher(hash)})
	out := m.SubmitCode(req.Code)
	jsonResponse(w, http.StatusOK, unlockResponse{Revealed: m.Revealed(), Shake: out.Shake})
}

func (h *BouquetsHandler) maxItems() int {
	if h.MaxItems < 1 {
		return composition.DefaultMaxItems
	}
	return h.MaxItems
}

func queryInt(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return fallback
	}
	return v
}
