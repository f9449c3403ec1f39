package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const sessionTokenBytes = 32

// NewSessionToken returns a fresh 256-bit session token in its base64url raw
// form. The raw token goes to the client; only HashSessionToken(token) may be
// persisted.
func NewSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashSessionToken returns the SHA-256 hash of the raw token, hex-encoded.
// Session records are keyed by this hash so a leaked database never exposes
// usable tokens.
func HashSessionToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// SecretEqual performs a constant-time comparison of two secret strings.
// Used for the bootstrap setup secret so the check does not leak a prefix
// match through timing.
func SecretEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
