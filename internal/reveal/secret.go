package reveal

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// NormalizeCode returns the canonical form of a secret code: trimmed and
// lower-cased.
func NormalizeCode(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Matcher checks a candidate code against a stored secret.
type Matcher interface {
	Match(candidate string) bool
}

// PlainMatcher compares against a secret held in memory. An empty secret
// matches everything.
type PlainMatcher string

// Match implements Matcher.
func (p PlainMatcher) Match(candidate string) bool {
	secret := NormalizeCode(string(p))
	return secret == "" || NormalizeCode(candidate) == secret
}

// HashMatcher compares against a bcrypt hash produced by HashSecret. An
// empty hash means the record has no secret and matches everything.
type HashMatcher string

// Match implements Matcher.
func (h HashMatcher) Match(candidate string) bool {
	if h == "" {
		return true
	}
	return bcrypt.CompareHashAndPassword([]byte(h), []byte(NormalizeCode(candidate))) == nil
}

// MaxSecretLength bounds secret codes; bcrypt only looks at 72 bytes.
const MaxSecretLength = 64

// HashSecret hashes the normalized secret. An empty secret hashes to "".
func HashSecret(secret string) (string, error) {
	norm := NormalizeCode(secret)
	if norm == "" {
		return "", nil
	}
	if len(norm) > MaxSecretLength {
		return "", fmt.Errorf("secret code longer than %d bytes", MaxSecretLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(norm), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing secret code: %w", err)
	}
	return string(hash), nil
}
