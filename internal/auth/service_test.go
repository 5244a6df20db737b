package auth

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foruapp/foru/internal/db"
	domainerrors "github.com/foruapp/foru/internal/errors"
	"github.com/foruapp/foru/internal/model"
	"github.com/foruapp/foru/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return &Service{
		DB:          db.NewTestDB(t),
		Secret:      "test-secret",
		MasterEmail: "boss@example.com",
		AccessTTL:   time.Minute,
		RefreshTTL:  time.Hour,
	}
}

func TestCompleteSignInPromotion(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	first, err := s.CompleteSignIn(ctx, &Profile{Email: "first@example.com", Name: "First"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleOwner, first.Role)

	second, err := s.CompleteSignIn(ctx, &Profile{Email: "second@example.com"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, second.Role)

	boss, err := s.CompleteSignIn(ctx, &Profile{Email: "boss@example.com"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleOwner, boss.Role)

	_, err = s.CompleteSignIn(ctx, &Profile{})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestCompleteSignInCachesAvatar(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 40, 40))))
	pic := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(buf.Bytes())
	}))
	defer pic.Close()

	s := newTestService(t)
	s.HTTPClient = pic.Client()

	u, err := s.CompleteSignIn(context.Background(), &Profile{Email: "a@example.com", Picture: pic.URL + "/a.png"})
	require.NoError(t, err)
	assert.True(t, u.HasAvatar)

	data, mime, err := store.GetUserAvatar(context.Background(), s.DB, u.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Equal(t, "image/jpeg", mime)
}

func TestCompleteSignInIgnoresAvatarFailure(t *testing.T) {
	pic := httptest.NewServer(http.NotFoundHandler())
	defer pic.Close()

	s := newTestService(t)
	s.HTTPClient = pic.Client()

	u, err := s.CompleteSignIn(context.Background(), &Profile{Email: "a@example.com", Picture: pic.URL})
	require.NoError(t, err)
	assert.False(t, u.HasAvatar)
}

func TestIssueAndAuthenticate(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	u, err := s.CompleteSignIn(ctx, &Profile{Email: "a@example.com"})
	require.NoError(t, err)

	tokens, err := s.IssueSession(ctx, u)
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.RefreshToken)

	claims, err := s.Authenticate(ctx, tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, model.RoleOwner, claims.Role)

	_, err = s.Authenticate(ctx, "")
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
	_, err = s.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
}

func TestRefreshCarriesCurrentRole(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	s.CompleteSignIn(ctx, &Profile{Email: "owner@example.com"})
	u, err := s.CompleteSignIn(ctx, &Profile{Email: "u@example.com"})
	require.NoError(t, err)

	tokens, err := s.IssueSession(ctx, u)
	require.NoError(t, err)

	require.NoError(t, store.UpdateUserRole(ctx, s.DB, u.ID, model.RolePremium))

	next, user, err := s.Refresh(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, model.RolePremium, user.Role)

	claims, err := s.Authenticate(ctx, next.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, model.RolePremium, claims.Role)

	_, _, err = s.Refresh(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized, "refresh tokens are single use")
}

func TestLogoutRevokes(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	u, _ := s.CompleteSignIn(ctx, &Profile{Email: "a@example.com"})
	tokens, err := s.IssueSession(ctx, u)
	require.NoError(t, err)

	claims, err := s.Authenticate(ctx, tokens.AccessToken)
	require.NoError(t, err)

	require.NoError(t, s.Logout(ctx, tokens.RefreshToken, claims))

	_, err = s.Authenticate(ctx, tokens.AccessToken)
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
	_, _, err = s.Refresh(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
}

func TestCanChangeRole(t *testing.T) {
	owner := &model.Session{UserID: 1, Email: "o@example.com", Role: model.RoleOwner}
	user := &model.User{ID: 2, Role: model.RoleUser}

	tests := []struct {
		name    string
		actor   *model.Session
		target  *model.User
		role    model.Role
		wantErr error
	}{
		{"owner promotes user", owner, user, model.RolePremium, nil},
		{"anonymous", nil, user, model.RolePremium, domainerrors.ErrUnauthorized},
		{"premium actor", &model.Session{UserID: 3, Role: model.RolePremium}, user, model.RoleUser, domainerrors.ErrUnauthorized},
		{"self", owner, &model.User{ID: 1, Role: model.RoleOwner}, model.RoleUser, domainerrors.ErrValidation},
		{"other owner", owner, &model.User{ID: 5, Role: model.RoleOwner}, model.RoleUser, domainerrors.ErrValidation},
		{"grant owner", owner, user, model.RoleOwner, domainerrors.ErrValidation},
		{"unknown role", owner, user, "admin", domainerrors.ErrValidation},
		{"missing target", owner, nil, model.RoleUser, domainerrors.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanChangeRole(tt.actor, tt.target, tt.role)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCurrentSession(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, CurrentSession(ctx))

	ctx = WithClaims(ctx, &Claims{UserID: 4, Email: "x@example.com", Role: model.RoleUser})
	s := CurrentSession(ctx)
	require.NotNil(t, s)
	assert.Equal(t, int64(4), s.UserID)
	assert.False(t, s.IsOwner())
}
