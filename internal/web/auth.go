package web

import (
	"log/slog"
	"net/http"

	"github.com/foruapp/foru/internal/auth"
)

// OAuth round-trip cookies, scoped to the callback path.
const (
	stateCookie    = "oauth_state"
	verifierCookie = "oauth_verifier"
	oauthPath      = "/auth/google"
	oauthMaxAge    = 600
)

// LoginPage handles GET /login.
func (s *Server) LoginPage(w http.ResponseWriter, r *http.Request) {
	data := &PageData{Title: "Sign in", Session: auth.CurrentSession(r.Context())}
	if s.Google == nil {
		data.Error = "Google sign-in is not configured on this server."
	}
	s.Templates.Render(w, "login.html", data)
}

// GoogleLogin handles GET /auth/google/login. It stores the state and PKCE
// verifier in short-lived cookies and redirects to Google's consent page.
func (s *Server) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if s.Google == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	state := auth.NewState()
	verifier := auth.NewVerifier()
	s.setOAuthCookie(w, stateCookie, state, oauthMaxAge)
	s.setOAuthCookie(w, verifierCookie, verifier, oauthMaxAge)

	http.Redirect(w, r, s.Google.AuthCodeURL(state, verifier), http.StatusFound)
}

// GoogleCallback handles GET /auth/google/callback.
func (s *Server) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if s.Google == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	q := r.URL.Query()
	stateC, err := r.Cookie(stateCookie)
	if err != nil || stateC.Value == "" || q.Get("state") != stateC.Value {
		s.loginFailed(w, http.StatusBadRequest, "Sign-in expired. Please try again.")
		return
	}
	verifierC, err := r.Cookie(verifierCookie)
	if err != nil || verifierC.Value == "" {
		s.loginFailed(w, http.StatusBadRequest, "Sign-in expired. Please try again.")
		return
	}
	s.setOAuthCookie(w, stateCookie, "", -1)
	s.setOAuthCookie(w, verifierCookie, "", -1)

	if e := q.Get("error"); e != "" {
		slog.Info("google sign-in cancelled", "reason", e)
		s.loginFailed(w, http.StatusUnauthorized, "Sign-in was cancelled.")
		return
	}

	profile, err := s.Google.Exchange(r.Context(), q.Get("code"), verifierC.Value)
	if err != nil {
		slog.Warn("google sign-in failed", "error", err)
		s.loginFailed(w, http.StatusUnauthorized, "Google sign-in failed.")
		return
	}

	user, err := s.Auth.CompleteSignIn(r.Context(), profile)
	if err != nil {
		slog.Error("failed to record sign-in", "error", err)
		s.loginFailed(w, http.StatusInternalServerError, "Sign-in failed.")
		return
	}
	tokens, err := s.Auth.IssueSession(r.Context(), user)
	if err != nil {
		slog.Error("failed to issue session", "error", err)
		s.loginFailed(w, http.StatusInternalServerError, "Sign-in failed.")
		return
	}

	auth.SetSessionCookies(w, tokens, s.SecureCookies)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout handles POST /logout.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	var refresh string
	if c, err := r.Cookie(auth.RefreshCookie); err == nil {
		refresh = c.Value
	}
	if err := s.Auth.Logout(r.Context(), refresh, auth.ClaimsFrom(r.Context())); err != nil {
		slog.Error("failed to end session", "error", err)
	}
	auth.ClearSessionCookies(w, s.SecureCookies)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) loginFailed(w http.ResponseWriter, status int, msg string) {
	s.Templates.RenderStatus(w, status, "login.html", &PageData{Title: "Sign in", Error: msg})
}

// setOAuthCookie sets or, with a negative maxAge, deletes a round-trip cookie.
func (s *Server) setOAuthCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     oauthPath,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
