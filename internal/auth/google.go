package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleUserInfoURL is Google's OpenID userinfo endpoint.
const GoogleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// Profile is the identity returned by the provider after sign-in.
type Profile struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GoogleConfig configures the Google provider.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Endpoint and UserInfoURL default to Google's and are overridden in tests.
	Endpoint    oauth2.Endpoint
	UserInfoURL string
}

// Google runs the OAuth authorization-code flow with PKCE against Google.
type Google struct {
	oauth       *oauth2.Config
	userInfoURL string
}

// NewGoogle creates a Google provider.
func NewGoogle(cfg GoogleConfig) *Google {
	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" {
		endpoint = google.Endpoint
	}
	userInfo := cfg.UserInfoURL
	if userInfo == "" {
		userInfo = GoogleUserInfoURL
	}
	return &Google{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     endpoint,
		},
		userInfoURL: userInfo,
	}
}

// NewState returns a random value for the OAuth state parameter.
func NewState() string {
	b := make([]byte, 16)
	rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// NewVerifier returns a PKCE code verifier.
func NewVerifier() string {
	return oauth2.GenerateVerifier()
}

// AuthCodeURL returns the consent page URL for state and the S256 challenge
// of verifier.
func (g *Google) AuthCodeURL(state, verifier string) string {
	return g.oauth.AuthCodeURL(state,
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
}

// Exchange trades an authorization code for tokens and fetches the user's
// profile. The email must be present and verified.
func (g *Google) Exchange(ctx context.Context, code, verifier string) (*Profile, error) {
	token, err := g.oauth.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("exchanging code: %w", err)
	}

	client := g.oauth.Client(ctx, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building userinfo request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetching userinfo: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var p Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decoding userinfo: %w", err)
	}
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	if p.Email == "" {
		return nil, fmt.Errorf("userinfo has no email")
	}
	if !p.EmailVerified {
		return nil, fmt.Errorf("email %s is not verified", p.Email)
	}
	return &p, nil
}
