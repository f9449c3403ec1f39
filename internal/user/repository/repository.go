package repository

import (
	"context"
	"errors"
	"time"

	"asset-manager/backend/internal/user/domain"
)

// ErrDuplicateEmail is returned by Create when the email is already taken
// (case-insensitively).
var ErrDuplicateEmail = errors.New("email already registered")

// Repository is the user data-access contract. Lookups return (nil, nil) when
// no row matches; errors are reserved for store failures.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByEmail looks up by normalized (lowercase) email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	// Update changes the mutable profile fields (name, role).
	Update(ctx context.Context, id, name string, role domain.Role) error
	// UpdatePassword sets the password hash and password-updated timestamp.
	UpdatePassword(ctx context.Context, id, passwordHash string, at time.Time) error
}
