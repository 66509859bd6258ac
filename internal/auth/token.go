// Package auth provides session token utilities and request auth context.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// tokenBytes is the entropy of a session token (hex-encoded to 64 chars).
const tokenBytes = 32

// GenerateSessionToken creates a cryptographically random session token.
// The plaintext goes into the cookie; only its hash is stored server-side.
func GenerateSessionToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashToken creates the SHA256 digest used as the session store key.
// The plaintext token is never stored.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
