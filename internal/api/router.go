// Package api implements the JSON HTTP surface under /api.
package api

import (
	"database/sql"
	"net/http"

	"github.com/foruapp/foru/internal/auth"
	"github.com/foruapp/foru/internal/catalog"
	"github.com/foruapp/foru/internal/drafts"
	"github.com/foruapp/foru/internal/email"
	"github.com/foruapp/foru/internal/imagegen"
	"github.com/foruapp/foru/internal/model"
	"github.com/foruapp/foru/internal/ratelimit"
	"github.com/foruapp/foru/internal/validation"
)

// Deps are the collaborators the API handlers need.
type Deps struct {
	DB      *sql.DB
	Auth    *auth.Service
	Catalog *catalog.Catalog
	Drafts  *drafts.Service
	Email   *email.Service
	Images  *imagegen.Client
	// Limiter throttles the endpoints that cost an outbound call. Nil
	// disables throttling.
	Limiter       *ratelimit.KeyedRateLimiter
	BaseURL       string
	MaxItems      int
	CORSOrigins   []string
	SecureCookies bool
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()
	v := validation.New()

	bouquets := &BouquetsHandler{DB: d.DB, Catalog: d.Catalog, Validator: v, BaseURL: d.BaseURL, MaxItems: d.MaxItems}
	share := &ShareHandler{DB: d.DB, Email: d.Email, Images: d.Images, Validator: v, BaseURL: d.BaseURL}
	users := &UsersHandler{DB: d.DB, Validator: v}
	authHandler := &AuthHandler{Auth: d.Auth, SecureCookies: d.SecureCookies}
	draftsHandler := &DraftsHandler{Drafts: d.Drafts, Validator: v}
	flowers := &FlowersHandler{Catalog: d.Catalog}

	requireOwner := RequireRole(model.RoleOwner)
	limited := RateLimitMiddleware(d.Limiter)

	// Public.
	mux.HandleFunc("GET /api/flowers", flowers.List)
	mux.HandleFunc("POST /api/bouquet", bouquets.Create)
	mux.HandleFunc("GET /api/bouquet/{id}", bouquets.Get)
	mux.HandleFunc("POST /api/bouquet/{id}/unlock", bouquets.Unlock)
	mux.Handle("POST /api/generate-image", limited(http.HandlerFunc(share.GenerateImage)))
	mux.Handle("POST /api/share-notify", limited(http.HandlerFunc(share.Notify)))

	// Owner only.
	mux.Handle("GET /api/bouquet", requireOwner(http.HandlerFunc(bouquets.List)))
	mux.Handle("GET /api/owner/users", requireOwner(http.HandlerFunc(users.List)))
	mux.Handle("PATCH /api/owner/users/update-role", requireOwner(http.HandlerFunc(users.UpdateRole)))

	// Sessions.
	mux.Handle("GET /api/auth/session", RequireSession(http.HandlerFunc(authHandler.Session)))
	mux.HandleFunc("POST /api/auth/refresh", authHandler.Refresh)
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)

	// Drafts.
	if d.Drafts != nil {
		mux.HandleFunc("POST /api/drafts", draftsHandler.Create)
		mux.HandleFunc("GET /api/drafts/{id}", draftsHandler.Get)
		mux.HandleFunc("DELETE /api/drafts/{id}", draftsHandler.Discard)
		mux.HandleFunc("PUT /api/drafts/{id}/flowers/{flowerId}", draftsHandler.SetCount)
		mux.HandleFunc("PATCH /api/drafts/{id}/items/{itemId}", draftsHandler.UpdateItem)
		mux.HandleFunc("DELETE /api/drafts/{id}/items/{itemId}", draftsHandler.DeleteItem)
	}

	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		jsonError(w, http.StatusNotFound, "not found")
	})

	var h http.Handler = mux
	h = SessionMiddleware(d.Auth)(h)
	h = CORSMiddleware(d.CORSOrigins)(h)
	return h
}

// Health handles GET /healthz.
func Health(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// FlowersHandler serves the flower catalog.
type FlowersHandler struct {
	Catalog *catalog.Catalog
}

// List handles GET /api/flowers.
func (h *FlowersHandler) List(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, h.Catalog.All())
}
