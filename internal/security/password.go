// Package security provides the credential hasher and session token helpers.
// Callers must not log or persist plaintext passwords or raw session tokens.
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	scryptScheme  = "scrypt"
	saltLength    = 16
	derivedKeyLen = 64
)

// Default scrypt cost parameters. N=32768 keeps interactive login under ~100ms
// on current hardware while staying memory-hard (~32 MiB per derivation).
const (
	DefaultScryptN = 32768
	DefaultScryptR = 8
	DefaultScryptP = 1
)

// PasswordHasher derives and verifies scrypt password digests. Cost parameters
// are embedded in every encoded digest, so they can be raised later without
// invalidating existing records.
type PasswordHasher struct {
	n, r, p int
}

// NewPasswordHasher returns a PasswordHasher with the given scrypt parameters.
// n must be a power of two greater than 1; non-positive or invalid values fall
// back to the defaults.
func NewPasswordHasher(n, r, p int) *PasswordHasher {
	if n <= 1 || n&(n-1) != 0 {
		n = DefaultScryptN
	}
	if r <= 0 {
		r = DefaultScryptR
	}
	if p <= 0 {
		p = DefaultScryptP
	}
	return &PasswordHasher{n: n, r: r, p: p}
}

// Hash derives a salted scrypt digest of password and encodes it as
// scrypt$N$r$p$<base64 salt>$<base64 key>. Returns an error only on salt
// generation or derivation failure.
func (h *PasswordHasher) Hash(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("password salt: %w", err)
	}
	key, err := scrypt.Key([]byte(password), salt, h.n, h.r, h.p, derivedKeyLen)
	if err != nil {
		return "", fmt.Errorf("password derive: %w", err)
	}
	return strings.Join([]string{
		scryptScheme,
		strconv.Itoa(h.n),
		strconv.Itoa(h.r),
		strconv.Itoa(h.p),
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(key),
	}, "$"), nil
}

// Verify re-derives password with the parameters stored in encoded and compares
// the result in constant time. It fails closed: any unknown scheme, missing
// field, malformed number, or bad base64 returns false, never an error.
func (h *PasswordHasher) Verify(password, encoded string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != scryptScheme {
		return false
	}
	n, errN := strconv.Atoi(parts[1])
	r, errR := strconv.Atoi(parts[2])
	p, errP := strconv.Atoi(parts[3])
	if errN != nil || errR != nil || errP != nil {
		return false
	}
	if n <= 1 || n&(n-1) != 0 || r <= 0 || p <= 0 {
		return false
	}
	salt, err := base64.StdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return false
	}
	expected, err := base64.StdEncoding.DecodeString(parts[5])
	if err != nil || len(expected) == 0 {
		return false
	}
	derived, err := scrypt.Key([]byte(password), salt, n, r, p, len(expected))
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(derived, expected) == 1
}
