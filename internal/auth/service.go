package auth

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"

	domainerrors "github.com/foruapp/foru/internal/errors"
	"github.com/foruapp/foru/internal/imaging"
	"github.com/foruapp/foru/internal/model"
	"github.com/foruapp/foru/internal/store"
)

// DefaultRefreshTTL is the refresh token lifetime when none is configured.
const DefaultRefreshTTL = 30 * 24 * time.Hour

// Tokens is a freshly issued session.
type Tokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// Service owns sign-in, session issuance and the role policy.
type Service struct {
	DB          *sql.DB
	Secret      string
	MasterEmail string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	// HTTPClient downloads profile pictures. Nil disables avatar caching.
	HTTPClient *http.Client
}

// CompleteSignIn records a successful provider sign-in and returns the user
// with its current role. The first user and the master email become owner.
// The profile picture is cached as an avatar when it can be fetched.
func (s *Service) CompleteSignIn(ctx context.Context, p *Profile) (*model.User, error) {
	if p == nil || p.Email == "" {
		return nil, domainerrors.Validation("sign-in profile has no email")
	}

	user, err := store.SignInUser(ctx, s.DB, model.SignIn{
		Name:  p.Name,
		Email: p.Email,
		Image: p.Picture,
	}, s.MasterEmail)
	if err != nil {
		return nil, err
	}

	if p.Picture != "" && s.HTTPClient != nil {
		if avatar, err := imaging.Fetch(ctx, s.HTTPClient, p.Picture); err != nil {
			slog.Warn("failed to cache avatar", "user", user.Email, "error", err)
		} else if err := store.SetUserAvatar(ctx, s.DB, user.ID, avatar.Data, avatar.MIME); err != nil {
			slog.Warn("failed to store avatar", "user", user.Email, "error", err)
		} else {
			user.HasAvatar = true
		}
	}

	slog.Info("user signed in", "user", user.Email, "role", user.Role)
	return user, nil
}

// IssueSession creates an access token and a stored refresh token for user.
func (s *Service) IssueSession(ctx context.Context, user *model.User) (*Tokens, error) {
	access, accessExp, err := GenerateToken(s.Secret, user, s.AccessTTL)
	if err != nil {
		return nil, domainerrors.Internal("issuing session", err)
	}

	refresh, err := randomHex(32)
	if err != nil {
		return nil, domainerrors.Internal("issuing session", err)
	}
	ttl := s.RefreshTTL
	if ttl <= 0 {
		ttl = DefaultRefreshTTL
	}
	refreshExp := time.Now().Add(ttl)
	if err := store.CreateRefreshSession(ctx, s.DB, hashToken(refresh), user.ID, refreshExp); err != nil {
		return nil, err
	}

	return &Tokens{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Refresh rotates a refresh token. The user is re-read from the store so the
// new access token carries the current role.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Tokens, *model.User, error) {
	if refreshToken == "" {
		return nil, nil, domainerrors.Unauthorized("missing refresh token")
	}
	hash := hashToken(refreshToken)

	sess, err := store.LookupRefreshSession(ctx, s.DB, hash)
	if err != nil {
		return nil, nil, err
	}
	if sess == nil {
		return nil, nil, domainerrors.Unauthorized("invalid refresh token")
	}
	if err := store.DeleteRefreshSession(ctx, s.DB, hash); err != nil {
		return nil, nil, err
	}

	user, err := store.GetUser(ctx, s.DB, sess.UserID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, domainerrors.Unauthorized("user no longer exists")
	}

	tokens, err := s.IssueSession(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return tokens, user, nil
}

// Logout ends a session: the refresh token is deleted and the access token,
// when given, is revoked until it expires.
func (s *Service) Logout(ctx context.Context, refreshToken string, access *Claims) error {
	if refreshToken != "" {
		if err := store.DeleteRefreshSession(ctx, s.DB, hashToken(refreshToken)); err != nil {
			return err
		}
	}
	if access != nil && access.ExpiresAt != nil {
		if err := store.RevokeAccessToken(ctx, s.DB, access.ID, access.ExpiresAt.Time); err != nil {
			return err
		}
	}
	return nil
}

// Authenticate validates an access token and checks it has not been revoked.
func (s *Service) Authenticate(ctx context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, domainerrors.Unauthorized("not authenticated")
	}
	claims, err := ValidateToken(s.Secret, token)
	if err != nil {
		return nil, domainerrors.Unauthorized("invalid token").WithCause(err)
	}
	revoked, err := store.IsTokenRevoked(ctx, s.DB, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, domainerrors.Unauthorized("token has been revoked")
	}
	return claims, nil
}

// CanChangeRole applies the role update policy: only an owner may change
// roles, never their own, never another owner's, and only to user or
// premium.
func CanChangeRole(actor *model.Session, target *model.User, newRole model.Role) error {
	if !actor.IsOwner() {
		return domainerrors.Unauthorized("owner access required")
	}
	if target == nil {
		return domainerrors.NotFound("user not found")
	}
	if target.ID == actor.UserID {
		return domainerrors.Validation("you cannot change your own role")
	}
	if target.Role == model.RoleOwner {
		return domainerrors.Validation("the owner's role cannot be changed")
	}
	if !newRole.Assignable() {
		return domainerrors.Validationf("role %q cannot be assigned", newRole)
	}
	return nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
