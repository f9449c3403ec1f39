package domain

import "time"

// Session is a server-side session record. It is keyed by the SHA-256 hash of
// the client-held token; the raw token is never persisted.
type Session struct {
	TokenHash  string
	UserID     string
	CreatedAt  time.Time
	LastSeenAt time.Time
	ExpiresAt  time.Time
	RevokedAt  *time.Time // nil when not revoked
	IPAddress  string     // diagnostic only
	UserAgent  string     // diagnostic only
}

// Active reports whether the session is usable at now: not revoked and not
// past its expiry. Expired and revoked are equivalent to validators.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(now)
}
