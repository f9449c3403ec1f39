package repository

import (
	"context"
	"time"

	"asset-manager/backend/internal/ratelimit/domain"
)

// Repository is the rate-limit data-access contract. Get returns (nil, nil)
// when no record exists. RegisterFailure and Clear must be atomic against
// concurrent callers for the same key: two simultaneous failures may not lose
// an increment, and an active block is returned unchanged rather than
// extended.
type Repository interface {
	Get(ctx context.Context, key string) (*domain.Record, error)
	// RegisterFailure applies one failed attempt at now and returns the
	// resulting record. window is the width of the attempt window anchored at
	// the record's window_start; when the counter reaches threshold the record
	// is blocked until now+block.
	RegisterFailure(ctx context.Context, key string, now time.Time, window, block time.Duration, threshold int) (*domain.Record, error)
	// Clear upserts the record to a zeroed counter with a fresh window and no
	// block. Clearing a nonexistent key creates the zeroed record.
	Clear(ctx context.Context, key string, now time.Time) error
}
