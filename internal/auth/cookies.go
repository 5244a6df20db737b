package auth

import (
	"net/http"
	"time"
)

// Cookie names for browser sessions.
const (
	TokenCookie   = "token"
	RefreshCookie = "refresh"
)

// SetSessionCookies stores a session's tokens in HttpOnly cookies.
func SetSessionCookies(w http.ResponseWriter, t *Tokens, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    t.AccessToken,
		Path:     "/",
		Expires:  t.AccessExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookie,
		Value:    t.RefreshToken,
		Path:     "/",
		Expires:  t.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookies removes the session cookies.
func ClearSessionCookies(w http.ResponseWriter, secure bool) {
	for _, name := range []string{TokenCookie, RefreshCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
