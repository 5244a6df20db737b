// Package web serves the server-rendered pages: home, the create form, the
// share page with its reveal interaction, sign-in and the owner panel.
package web

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/foruapp/foru/internal/auth"
	"github.com/foruapp/foru/internal/catalog"
	"github.com/foruapp/foru/internal/store"
	webembed "github.com/foruapp/foru/web"
)

// Server holds all dependencies for page handlers.
type Server struct {
	DB        *sql.DB
	Templates *Templates
	Auth      *auth.Service
	// Google is nil when Google sign-in is not configured.
	Google        *auth.Google
	Catalog       *catalog.Catalog
	MaxItems      int
	SecureCookies bool
}

// Deps are the collaborators NewRouter wires into a Server.
type Deps struct {
	DB            *sql.DB
	Auth          *auth.Service
	Google        *auth.Google
	Catalog       *catalog.Catalog
	MaxItems      int
	SecureCookies bool
}

// NewRouter creates the web page router with all page routes registered.
func NewRouter(d Deps) (http.Handler, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		DB:            d.DB,
		Templates:     templates,
		Auth:          d.Auth,
		Google:        d.Google,
		Catalog:       d.Catalog,
		MaxItems:      d.MaxItems,
		SecureCookies: d.SecureCookies,
	}

	mux := http.NewServeMux()

	// Static assets.
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(webembed.StaticFS()))))

	mux.HandleFunc("GET /{$}", s.Home)
	mux.HandleFunc("GET /create", s.CreatePage)
	mux.HandleFunc("POST /create", s.CreateSubmit)
	mux.HandleFunc("GET /share/{id}", s.SharePage)
	mux.HandleFunc("POST /share/{id}/reveal", s.RevealSubmit)

	// Sign-in.
	mux.HandleFunc("GET /login", s.LoginPage)
	mux.HandleFunc("GET /auth/google/login", s.GoogleLogin)
	mux.HandleFunc("GET /auth/google/callback", s.GoogleCallback)
	mux.HandleFunc("POST /logout", s.Logout)

	// Owner panel.
	mux.Handle("GET /owner", s.requireOwner(s.OwnerPage))
	mux.Handle("POST /owner/users/{id}/role", s.requireOwner(s.OwnerRoleSubmit))

	mux.HandleFunc("GET /users/{id}/avatar", s.AvatarGet)

	mux.HandleFunc("/", s.NotFound)

	return s.sessionMiddleware(mux), nil
}

// NotFound renders the not-found page.
func (s *Server) NotFound(w http.ResponseWriter, r *http.Request) {
	s.Templates.RenderStatus(w, http.StatusNotFound, "notfound.html", &PageData{
		Title:   "Not found",
		Session: auth.CurrentSession(r.Context()),
	})
}

// AvatarGet handles GET /users/{id}/avatar.
func (s *Server) AvatarGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	data, mime, err := store.GetUserAvatar(r.Context(), s.DB, id)
	if err != nil {
		slog.Error("failed to get avatar", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if data == nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := w.Write(data); err != nil {
		slog.Error("failed to write avatar response", "error", err)
	}
}
