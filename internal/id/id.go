// Package id generates the public identifiers used in share links.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// alphabet avoids characters that are easy to confuse when a link is read
// aloud or retyped.
const alphabet = "23456789abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"

// ShareLength is the length of a bouquet share id.
const ShareLength = 12

// Share returns a new random share id.
func Share() (string, error) {
	id, err := gonanoid.Generate(alphabet, ShareLength)
	if err != nil {
		return "", fmt.Errorf("generate share id: %w", err)
	}
	return id, nil
}

// Valid reports whether s has the shape of a share id. It is used to reject
// junk path values before touching the database.
func Valid(s string) bool {
	if len(s) != ShareLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !inAlphabet(s[i]) {
			return false
		}
	}
	return true
}

func inAlphabet(c byte) bool {
	for i := 0; i < len(alphabet); i++ {
		if alphabet[i] == c {
			return true
		}
	}
	return false
}
