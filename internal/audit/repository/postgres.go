package repository

import (
	"context"
	"database/sql"

	"asset-manager/backend/internal/audit/domain"
)

// PostgresRepository implements Repository against the audit_logs table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists one audit log entry.
func (r *PostgresRepository) Create(ctx context.Context, entry *domain.AuditLog) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, user_id, action, resource, ip, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID,
		sql.NullString{String: entry.UserID, Valid: entry.UserID != ""},
		entry.Action, entry.Resource, entry.IP, entry.Metadata, entry.CreatedAt)
	return err
}
