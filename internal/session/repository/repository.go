package repository

import (
	"context"
	"time"

	"asset-manager/backend/internal/session/domain"
)

// Repository is the session data-access contract. GetByTokenHash returns
// (nil, nil) when no row matches; errors are reserved for store failures.
// Mutations are single atomic statements so concurrent requests for the same
// session cannot lose updates.
type Repository interface {
	Create(ctx context.Context, s *domain.Session) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	// TouchLastSeen updates last_seen_at for a live session. Best-effort
	// callers may ignore the error.
	TouchLastSeen(ctx context.Context, tokenHash string, at time.Time) error
	// Revoke marks the session revoked. Idempotent: revoking an unknown or
	// already-revoked session is a no-op.
	Revoke(ctx context.Context, tokenHash string, at time.Time) error
	// RevokeAllByUser revokes every active session owned by the user.
	RevokeAllByUser(ctx context.Context, userID string, at time.Time) error
	// DeleteExpired garbage-collects sessions whose expiry passed before
	// cutoff. Returns the number of rows removed.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
