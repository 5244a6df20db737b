package auth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeGoogle serves a token endpoint that checks the PKCE verifier against
// the challenge sent to the consent page, and a userinfo endpoint.
func fakeGoogle(t *testing.T, challenge *string, profile map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		sum := sha256.Sum256([]byte(r.PostForm.Get("code_verifier")))
		if base64.RawURLEncoding.EncodeToString(sum[:]) != *challenge || r.PostForm.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "at-123",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("GET /userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-123" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(profile)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestGoogle(srv *httptest.Server) *Google {
	return NewGoogle(GoogleConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/auth/google/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:   srv.URL + "/auth",
			TokenURL:  srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		UserInfoURL: srv.URL + "/userinfo",
	})
}

func TestGoogleFlow(t *testing.T) {
	var challenge string
	srv := fakeGoogle(t, &challenge, map[string]any{
		"email":          "Ana@Example.com",
		"email_verified": true,
		"name":           "Ana",
		"picture":        "https://example.com/ana.png",
	})
	g := newTestGoogle(srv)

	state, verifier := NewState(), NewVerifier()
	u, err := url.Parse(g.AuthCodeURL(state, verifier))
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, state, q.Get("state"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	challenge = q.Get("code_challenge")
	require.NotEmpty(t, challenge)

	p, err := g.Exchange(context.Background(), "good-code", verifier)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", p.Email)
	assert.Equal(t, "Ana", p.Name)
	assert.Equal(t, "https://example.com/ana.png", p.Picture)

	_, err = g.Exchange(context.Background(), "good-code", NewVerifier())
	assert.Error(t, err, "wrong verifier must fail")
}

func TestGoogleRejectsUnverifiedEmail(t *testing.T) {
	var challenge string
	srv := fakeGoogle(t, &challenge, map[string]any{"email": "x@example.com", "email_verified": false})
	g := newTestGoogle(srv)

	verifier := NewVerifier()
	u, _ := url.Parse(g.AuthCodeURL("s", verifier))
	challenge = u.Query().Get("code_challenge")

	_, err := g.Exchange(context.Background(), "good-code", verifier)
	assert.Error(t, err)
}
