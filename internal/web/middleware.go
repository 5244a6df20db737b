package web

import (
	"log/slog"
	"net/http"

	"github.com/foruapp/foru/internal/auth"
)

// sessionMiddleware loads the signed-in user from the session cookies. An
// expired access token is renewed from the refresh cookie. Anything else
// leaves the request anonymous.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims := s.cookieClaims(w, r); claims != nil {
			r = r.WithContext(auth.WithClaims(r.Context(), claims))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) cookieClaims(w http.ResponseWriter, r *http.Request) *auth.Claims {
	if c, err := r.Cookie(auth.TokenCookie); err == nil && c.Value != "" {
		claims, err := s.Auth.Authenticate(r.Context(), c.Value)
		if err == nil {
			return claims
		}
		slog.Debug("session cookie rejected", "error", err)
	}

	c, err := r.Cookie(auth.RefreshCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	tokens, _, err := s.Auth.Refresh(r.Context(), c.Value)
	if err != nil {
		slog.Debug("refresh cookie rejected", "error", err)
		auth.ClearSessionCookies(w, s.SecureCookies)
		return nil
	}
	auth.SetSessionCookies(w, tokens, s.SecureCookies)

	claims, err := auth.ValidateToken(s.Auth.Secret, tokens.AccessToken)
	if err != nil {
		slog.Error("freshly issued token did not validate", "error", err)
		return nil
	}
	return claims
}

// requireOwner sends anonymous visitors to the login page and answers 401 to
// signed-in users who are not the owner.
func (s *Server) requireOwner(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := auth.CurrentSession(r.Context())
		if session == nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if !session.IsOwner() {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	})
}
