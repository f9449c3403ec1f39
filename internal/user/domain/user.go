package domain

import (
	"errors"
	"strings"
	"time"
)

// User is the core credential record. Email is stored lowercase and is unique
// case-insensitively.
type User struct {
	ID                string
	Name              string
	Email             string
	Role              Role
	PasswordHash      string // encoded scrypt digest; empty until a password is set
	PasswordUpdatedAt *time.Time
	CreatedAt         time.Time
}

// Role is the closed set of privilege levels. Role checks are flat set
// membership; there is no hierarchy.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleITAdmin    Role = "IT_ADMIN"
	RoleITManager  Role = "IT_MANAGER"
	RoleAuditor    Role = "AUDITOR"
)

// Roles lists every valid role, for validation and API responses.
func Roles() []Role {
	return []Role{RoleSuperAdmin, RoleITAdmin, RoleITManager, RoleAuditor}
}

// ParseRole returns the Role for s, or an error if s names no known role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.TrimSpace(s))
	for _, known := range Roles() {
		if r == known {
			return r, nil
		}
	}
	return "", errors.New("unknown role")
}

// In reports whether r is one of allowed.
func (r Role) In(allowed ...Role) bool {
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}

// NormalizeEmail lowercases and trims an email for use as the identity key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate validates the user for persistence.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.Email != NormalizeEmail(u.Email) {
		return errors.New("email must be normalized lowercase")
	}
	if u.Name == "" {
		return errors.New("name is required")
	}
	if _, err := ParseRole(string(u.Role)); err != nil {
		return err
	}
	return nil
}
