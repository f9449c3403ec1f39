// Package service implements the session manager: token issuance, validation
// with opportunistic last-seen touching, and revocation.
package service

import (
	"context"
	"time"

	"asset-manager/backend/internal/security"
	"asset-manager/backend/internal/session/domain"
	"asset-manager/backend/internal/session/repository"
)

const (
	// DefaultTTL is the session lifetime from creation.
	DefaultTTL = 14 * 24 * time.Hour
	// DefaultTouchInterval bounds how often a busy session rewrites
	// last_seen_at while keeping it fresh enough for idle-session auditing.
	DefaultTouchInterval = 5 * time.Minute
)

// ClientMeta carries diagnostic request metadata recorded on the session.
type ClientMeta struct {
	IPAddress string
	UserAgent string
}

// Manager issues, validates, and revokes session tokens. All state lives in
// the repository; Manager itself is stateless and safe for concurrent use.
type Manager struct {
	repo          repository.Repository
	ttl           time.Duration
	touchInterval time.Duration
	nowFn         func() time.Time
}

// NewManager returns a session manager with the given TTL and touch interval.
// Non-positive values fall back to the defaults.
func NewManager(repo repository.Repository, ttl, touchInterval time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if touchInterval <= 0 {
		touchInterval = DefaultTouchInterval
	}
	return &Manager{
		repo:          repo,
		ttl:           ttl,
		touchInterval: touchInterval,
		nowFn:         func() time.Time { return time.Now().UTC() },
	}
}

// Create issues a fresh session for userID and returns the raw token with its
// expiry. Only the token's SHA-256 hash is persisted.
func (m *Manager) Create(ctx context.Context, userID string, meta ClientMeta) (string, time.Time, error) {
	token, err := security.NewSessionToken()
	if err != nil {
		return "", time.Time{}, err
	}
	now := m.nowFn()
	expiresAt := now.Add(m.ttl)
	s := &domain.Session{
		TokenHash:  security.HashSessionToken(token),
		UserID:     userID,
		CreatedAt:  now,
		LastSeenAt: now,
		ExpiresAt:  expiresAt,
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
	}
	if err := m.repo.Create(ctx, s); err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Validate resolves rawToken to its session. It returns (nil, nil) for an
// empty token, an unknown hash, a revoked session, or a past expiry. On a hit
// whose last-seen is older than the touch interval it updates last_seen_at
// best-effort; a failed touch never fails validation.
func (m *Manager) Validate(ctx context.Context, rawToken string) (*domain.Session, error) {
	if rawToken == "" {
		return nil, nil
	}
	s, err := m.repo.GetByTokenHash(ctx, security.HashSessionToken(rawToken))
	if err != nil {
		return nil, err
	}
	now := m.nowFn()
	if s == nil || !s.Active(now) {
		return nil, nil
	}
	if now.Sub(s.LastSeenAt) > m.touchInterval {
		if err := m.repo.TouchLastSeen(ctx, s.TokenHash, now); err == nil {
			s.LastSeenAt = now
		}
	}
	return s, nil
}

// Revoke invalidates the session for rawToken. Idempotent; unknown tokens are
// a silent no-op so callers cannot learn whether a token existed.
func (m *Manager) Revoke(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return nil
	}
	return m.repo.Revoke(ctx, security.HashSessionToken(rawToken), m.nowFn())
}

// RevokeAll invalidates every active session owned by userID. Used on password
// change to force re-authentication everywhere.
func (m *Manager) RevokeAll(ctx context.Context, userID string) error {
	return m.repo.RevokeAllByUser(ctx, userID, m.nowFn())
}

// PurgeExpired deletes rows whose expiry has passed. Expired sessions are
// already unusable; this only reclaims storage, so it runs from a background
// janitor rather than the request path.
func (m *Manager) PurgeExpired(ctx context.Context) (int64, error) {
	return m.repo.DeleteExpired(ctx, m.nowFn())
}
