package api

import (
	"log/slog"
	"net/http"

	"github.com/foruapp/foru/internal/auth"
	"github.com/foruapp/foru/internal/model"
)

// AuthHandler handles session endpoints. Sign-in itself happens through the
// Google redirect flow served by the web package.
type AuthHandler struct {
	Auth          *auth.Service
	SecureCookies bool
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type sessionResponse struct {
	*auth.Tokens
	User *model.User `json:"user"`
}

// Session handles GET /api/auth/session and returns {email, role, id}.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, auth.CurrentSession(r.Context()))
}

// Refresh handles POST /api/auth/refresh. The refresh token comes from the
// body or, for browsers, the refresh cookie.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := refreshTokenFrom(w, r)

	tokens, user, err := h.Auth.Refresh(r.Context(), token)
	if err != nil {
		writeError(w, r, err)
		return
	}

	auth.SetSessionCookies(w, tokens, h.SecureCookies)
	jsonResponse(w, http.StatusOK, sessionResponse{Tokens: tokens, User: user})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := refreshTokenFrom(w, r)
	claims := auth.ClaimsFrom(r.Context())

	if err := h.Auth.Logout(r.Context(), token, claims); err != nil {
		writeError(w, r, err)
		return
	}

	if claims != nil {
		slog.Info("user logged out", "user", claims.Email)
	}
	auth.ClearSessionCookies(w, h.SecureCookies)
	w.WriteHeader(http.StatusNoContent)
}

func refreshTokenFrom(w http.ResponseWriter, r *http.Request) string {
	if r.ContentLength > 0 {
		var req refreshRequest
		if err := decodeJSON(w, r, &req); err == nil && req.RefreshToken != "" {
			return req.RefreshToken
		}
	}
	if c, err := r.Cookie(auth.RefreshCookie); err == nil {
		return c.Value
	}
	return ""
}
