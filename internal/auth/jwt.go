package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/foruapp/foru/internal/model"
)

// Claims are the session token claims: the signed-in user's id, email and
// role at the time the token was issued.
type Claims struct {
	UserID int64      `json:"id"`
	Email  string     `json:"email"`
	Role   model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Session returns the validated session carried by the claims.
func (c *Claims) Session() *model.Session {
	return &model.Session{UserID: c.UserID, Email: c.Email, Role: c.Role}
}

// DefaultAccessTTL is the access token lifetime when none is configured.
const DefaultAccessTTL = 15 * time.Minute

// GenerateToken creates a signed access token for a user with a unique JTI.
func GenerateToken(secret string, user *model.User, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = DefaultAccessTTL
	}
	jti, err := randomHex(16)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generating JTI: %w", err)
	}

	now := time.Now()
	expires := now.Add(ttl)
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   fmt.Sprint(user.ID),
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, expires, nil
}

// ValidateToken parses and validates an access token. Tokens carrying an
// unknown role or no user are rejected.
func ValidateToken(secret, tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, hmacKey(secret),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.UserID <= 0 || claims.Email == "" {
		return nil, fmt.Errorf("token has no user")
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("token has unknown role %q", claims.Role)
	}
	return claims, nil
}

func hmacKey(secret string) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
