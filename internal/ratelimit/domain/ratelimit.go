package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Record is the persisted per-credential attempt counter. The counter is only
// meaningful inside the window anchored at WindowStart; while BlockedUntil is
// set and in the future the counter is irrelevant.
type Record struct {
	Key          string
	Attempts     int
	WindowStart  time.Time
	BlockedUntil *time.Time // nil when not blocked
}

// State is the limiter's answer for a key.
type State struct {
	Blocked           bool
	BlockedUntil      *time.Time
	RemainingAttempts int
}

// Key derives the limiter key from a credential + origin pair. Hashing the
// joined pair means neither the email nor the IP alone is enumerable from the
// stored keys, and the limit binds to the specific combination.
func Key(email, ipAddress string) string {
	if ipAddress == "" {
		ipAddress = "unknown"
	}
	h := sha256.Sum256([]byte(strings.ToLower(email) + "|" + ipAddress))
	return hex.EncodeToString(h[:])
}
