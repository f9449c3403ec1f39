package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"asset-manager/backend/internal/session/domain"
)

// PostgresRepository implements Repository against the user_sessions table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the session. The session must have TokenHash set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_sessions (token_hash, user_id, created_at, last_seen_at, expires_at, revoked_at, ip_address, user_agent)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.TokenHash, s.UserID, s.CreatedAt, s.LastSeenAt, s.ExpiresAt,
		timeToNullTime(s.RevokedAt),
		sql.NullString{String: s.IPAddress, Valid: s.IPAddress != ""},
		sql.NullString{String: s.UserAgent, Valid: s.UserAgent != ""})
	return err
}

// GetByTokenHash returns the session for the token hash, or nil if not found.
func (r *PostgresRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT token_hash, user_id, created_at, last_seen_at, expires_at, revoked_at, ip_address, user_agent
		 FROM user_sessions WHERE token_hash = $1`, tokenHash)
	var (
		s         domain.Session
		revokedAt sql.NullTime
		ip, ua    sql.NullString
	)
	err := row.Scan(&s.TokenHash, &s.UserID, &s.CreatedAt, &s.LastSeenAt, &s.ExpiresAt, &revokedAt, &ip, &ua)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if revokedAt.Valid {
		s.RevokedAt = &revokedAt.Time
	}
	s.IPAddress = ip.String
	s.UserAgent = ua.String
	return &s, nil
}

// TouchLastSeen updates the last-seen timestamp for a non-revoked session.
func (r *PostgresRepository) TouchLastSeen(ctx context.Context, tokenHash string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE user_sessions SET last_seen_at = $2 WHERE token_hash = $1 AND revoked_at IS NULL",
		tokenHash, at)
	return err
}

// Revoke marks the session revoked. The revoked_at guard makes it idempotent
// and keeps the original revocation time under concurrent calls.
func (r *PostgresRepository) Revoke(ctx context.Context, tokenHash string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE user_sessions SET revoked_at = $2 WHERE token_hash = $1 AND revoked_at IS NULL",
		tokenHash, at)
	return err
}

// RevokeAllByUser revokes every active session owned by the user.
func (r *PostgresRepository) RevokeAllByUser(ctx context.Context, userID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE user_sessions SET revoked_at = $2 WHERE user_id = $1 AND revoked_at IS NULL",
		userID, at)
	return err
}

// DeleteExpired removes sessions whose expiry passed before cutoff.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM user_sessions WHERE expires_at < $1", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func timeToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
