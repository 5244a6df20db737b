package auth

import (
	"context"

	"github.com/foruapp/foru/internal/model"
)

type contextKey string

const claimsKey contextKey = "claims"

// WithClaims returns a context carrying the authenticated claims.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFrom returns the claims stored by WithClaims, or nil.
func ClaimsFrom(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsKey).(*Claims)
	return claims
}

// CurrentSession returns the signed-in session, or nil for an anonymous
// request.
func CurrentSession(ctx context.Context) *model.Session {
	claims := ClaimsFrom(ctx)
	if claims == nil {
		return nil
	}
	return claims.Session()
}
