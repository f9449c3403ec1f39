package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"asset-manager/backend/internal/ratelimit/domain"
)

// PostgresRepository implements Repository against the login_rate_limits table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a rate-limit repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get returns the record for key, or nil if none exists.
func (r *PostgresRepository) Get(ctx context.Context, key string) (*domain.Record, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT key, attempts, window_start, blocked_until FROM login_rate_limits WHERE key = $1", key)
	var (
		rec          domain.Record
		blockedUntil sql.NullTime
	)
	err := row.Scan(&rec.Key, &rec.Attempts, &rec.WindowStart, &blockedUntil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if blockedUntil.Valid {
		rec.BlockedUntil = &blockedUntil.Time
	}
	return &rec, nil
}

// registerFailureSQL applies one failure as a single upsert so concurrent
// attempts for the same key serialize on the row without a transaction.
// Parameters: $1 key, $2 now, $3 window start cutoff (now-window),
// $4 threshold, $5 block expiry (now+block).
//
// An actively blocked record passes through unchanged, so retries during a
// block never extend it. An elapsed window resets the counter to 1 with a new
// window start; otherwise the counter increments in place. Reaching the
// threshold sets blocked_until.
const registerFailureSQL = `
INSERT INTO login_rate_limits (key, attempts, window_start, blocked_until)
VALUES ($1, 1, $2, CASE WHEN 1 >= $4 THEN $5 ELSE NULL END)
ON CONFLICT (key) DO UPDATE SET
  attempts = CASE
    WHEN login_rate_limits.blocked_until IS NOT NULL AND login_rate_limits.blocked_until > $2
      THEN login_rate_limits.attempts
    WHEN login_rate_limits.window_start <= $3 THEN 1
    ELSE login_rate_limits.attempts + 1
  END,
  window_start = CASE
    WHEN login_rate_limits.blocked_until IS NOT NULL AND login_rate_limits.blocked_until > $2
      THEN login_rate_limits.window_start
    WHEN login_rate_limits.window_start <= $3 THEN $2
    ELSE login_rate_limits.window_start
  END,
  blocked_until = CASE
    WHEN login_rate_limits.blocked_until IS NOT NULL AND login_rate_limits.blocked_until > $2
      THEN login_rate_limits.blocked_until
    WHEN (CASE WHEN login_rate_limits.window_start <= $3 THEN 1
               ELSE login_rate_limits.attempts + 1 END) >= $4
      THEN $5
    ELSE NULL
  END
RETURNING key, attempts, window_start, blocked_until`

// RegisterFailure atomically applies one failed attempt and returns the
// resulting record.
func (r *PostgresRepository) RegisterFailure(ctx context.Context, key string, now time.Time, window, block time.Duration, threshold int) (*domain.Record, error) {
	row := r.db.QueryRowContext(ctx, registerFailureSQL,
		key, now, now.Add(-window), threshold, now.Add(block))
	var (
		rec          domain.Record
		blockedUntil sql.NullTime
	)
	if err := row.Scan(&rec.Key, &rec.Attempts, &rec.WindowStart, &blockedUntil); err != nil {
		return nil, err
	}
	if blockedUntil.Valid {
		rec.BlockedUntil = &blockedUntil.Time
	}
	return &rec, nil
}

// Clear upserts the record to a zeroed counter with a fresh window.
func (r *PostgresRepository) Clear(ctx context.Context, key string, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO login_rate_limits (key, attempts, window_start, blocked_until)
		 VALUES ($1, 0, $2, NULL)
		 ON CONFLICT (key) DO UPDATE SET attempts = 0, window_start = $2, blocked_until = NULL`,
		key, now)
	return err
}
