// Package token generates opaque public confirmation tokens.
// Tokens are 32-character random strings with no embedded structure; they
// gate the unauthenticated confirmation surface and must be collision
// resistant across all pending movements.
package token

import (
	"crypto/rand"
	"fmt"
	"time"
)

// Length is the fixed token length in characters.
const Length = 32

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// New returns a fresh 32-character random token.
func New() (string, error) {
	buf := make([]byte, Length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf), nil
}

// Valid reports whether s has the shape of a public token.
// Used to reject malformed tokens before hitting the database.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}

// Expired reports whether the expiry timestamp has passed at the given time.
// A nil expiry never expires.
func Expired(expiresAt *time.Time, now time.Time) bool {
	return expiresAt != nil && now.After(*expiresAt)
}
