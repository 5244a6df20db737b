package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// revealAudience scopes reveal tokens so they can never pass as sessions.
const revealAudience = "reveal"

// RevealTTL bounds how long a browser remembers an unlocked share.
const RevealTTL = 90 * 24 * time.Hour

type revealClaims struct {
	jwt.RegisteredClaims
}

// GenerateRevealToken signs the fact that shareID was unlocked at the given
// time. It is stored in a cookie so reloading the page keeps the reveal.
func GenerateRevealToken(secret, shareID string, at time.Time) (string, error) {
	claims := revealClaims{jwt.RegisteredClaims{
		Subject:   shareID,
		Audience:  jwt.ClaimStrings{revealAudience},
		IssuedAt:  jwt.NewNumericDate(at),
		ExpiresAt: jwt.NewNumericDate(at.Add(RevealTTL)),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing reveal token: %w", err)
	}
	return signed, nil
}

// ValidateRevealToken checks a reveal token for shareID and returns when the
// share was unlocked.
func ValidateRevealToken(secret, tokenStr, shareID string) (time.Time, error) {
	claims := &revealClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, hmacKey(secret),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(revealAudience),
		jwt.WithSubject(shareID),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing reveal token: %w", err)
	}
	if claims.IssuedAt == nil {
		return time.Time{}, fmt.Errorf("reveal token has no time")
	}
	return claims.IssuedAt.Time, nil
}
