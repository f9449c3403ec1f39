// Package service implements the authentication flows: login with rate
// limiting, logout, password change, and the out-of-band password bootstrap.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	auditdomain "asset-manager/backend/internal/audit/domain"
	ratelimitdomain "asset-manager/backend/internal/ratelimit/domain"
	"asset-manager/backend/internal/security"
	sessionsvc "asset-manager/backend/internal/session/service"
	userdomain "asset-manager/backend/internal/user/domain"
)

// Sentinel errors; handlers map them to HTTP statuses.
var (
	ErrBadBootstrapSecret = errors.New("invalid bootstrap secret")
	ErrUserNotFound       = errors.New("user not found")
	ErrPasswordUnset      = errors.New("password record not found")
	ErrSamePassword       = errors.New("new password must be different from current password")
)

// InvalidCredentialsError is returned for any login failure a client may not
// distinguish: unknown email, unset password, or wrong password. Remaining is
// the attempt budget left before the key is blocked.
type InvalidCredentialsError struct {
	Remaining int
}

func (e *InvalidCredentialsError) Error() string { return "invalid credentials" }

// RateLimitedError is returned when the (email, IP) key is blocked.
type RateLimitedError struct {
	Until time.Time
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many failed attempts; blocked until %s", e.Until.Format(time.RFC3339))
}

// WeakPasswordError reports the first password-policy violation.
type WeakPasswordError struct {
	Reason string
}

func (e *WeakPasswordError) Error() string { return e.Reason }

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, at time.Time) error
}

// SessionManager is the session surface needed by the auth service.
type SessionManager interface {
	Create(ctx context.Context, userID string, meta sessionsvc.ClientMeta) (string, time.Time, error)
	Revoke(ctx context.Context, rawToken string) error
	RevokeAll(ctx context.Context, userID string) error
}

// RateLimiter is the limiter surface needed by the auth service.
type RateLimiter interface {
	Check(ctx context.Context, key string) (*ratelimitdomain.State, error)
	RegisterFailure(ctx context.Context, key string) (*ratelimitdomain.State, error)
	Clear(ctx context.Context, key string) error
}

// AuditLogger records security events best-effort.
type AuditLogger interface {
	LogEvent(ctx context.Context, userID, action, resource, ip, metadata string)
}

// LoginResult is a successful login: the user plus the raw session token to
// place in the client cookie.
type LoginResult struct {
	User      *userdomain.User
	Token     string
	ExpiresAt time.Time
}

// AuthService orchestrates the identity core. The check order inside Login is
// fixed: rate limiter before credential verification, so a blocked attacker
// learns nothing about the password.
type AuthService struct {
	users           UserRepo
	sessions        SessionManager
	limiter         RateLimiter
	hasher          *security.PasswordHasher
	audit           AuditLogger
	bootstrapSecret string
	nowFn           func() time.Time
}

// NewAuthService returns an AuthService with the given dependencies. audit may
// be nil. bootstrapSecret may be empty; the bootstrap endpoint is then
// disabled.
func NewAuthService(
	users UserRepo,
	sessions SessionManager,
	limiter RateLimiter,
	hasher *security.PasswordHasher,
	audit AuditLogger,
	bootstrapSecret string,
) *AuthService {
	return &AuthService{
		users:           users,
		sessions:        sessions,
		limiter:         limiter,
		hasher:          hasher,
		audit:           audit,
		bootstrapSecret: bootstrapSecret,
		nowFn:           func() time.Time { return time.Now().UTC() },
	}
}

// Login authenticates email/password and creates a session. Unknown email and
// wrong password are indistinguishable to the caller, and both count against
// the rate limit.
func (s *AuthService) Login(ctx context.Context, email, password string, meta sessionsvc.ClientMeta) (*LoginResult, error) {
	email = userdomain.NormalizeEmail(email)
	key := ratelimitdomain.Key(email, meta.IPAddress)

	state, err := s.limiter.Check(ctx, key)
	if err != nil {
		return nil, err
	}
	if state.Blocked {
		s.logEvent(ctx, "", auditdomain.ActionLoginBlocked, meta.IPAddress, "")
		return nil, &RateLimitedError{Until: *state.BlockedUntil}
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || user.PasswordHash == "" || !s.hasher.Verify(password, user.PasswordHash) {
		failed, err := s.limiter.RegisterFailure(ctx, key)
		if err != nil {
			return nil, err
		}
		s.logEvent(ctx, "", auditdomain.ActionLoginFailure, meta.IPAddress, "")
		return nil, &InvalidCredentialsError{Remaining: failed.RemainingAttempts}
	}

	if err := s.limiter.Clear(ctx, key); err != nil {
		return nil, err
	}
	token, expiresAt, err := s.sessions.Create(ctx, user.ID, meta)
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, user.ID, auditdomain.ActionLoginSuccess, meta.IPAddress, "")
	return &LoginResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// Logout revokes the session for rawToken. Idempotent; an unknown or empty
// token is a silent no-op.
func (s *AuthService) Logout(ctx context.Context, rawToken, ip string) error {
	if err := s.sessions.Revoke(ctx, rawToken); err != nil {
		return err
	}
	s.logEvent(ctx, "", auditdomain.ActionLogout, ip, "")
	return nil
}

// ChangePassword re-verifies the current password, enforces the password
// policy, rejects reuse, and rotates the credential. All sessions for the
// user are revoked before the new hash lands, so a failure between the two
// steps fails secure (sessions gone, old password still valid).
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword, ip string) error {
	if err := ValidatePasswordPolicy(newPassword); err != nil {
		return err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil || user.PasswordHash == "" {
		return ErrPasswordUnset
	}
	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		return &InvalidCredentialsError{}
	}
	if s.hasher.Verify(newPassword, user.PasswordHash) {
		return ErrSamePassword
	}
	newHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.sessions.RevokeAll(ctx, user.ID); err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, newHash, s.nowFn()); err != nil {
		return err
	}
	s.logEvent(ctx, user.ID, auditdomain.ActionPasswordChange, ip, "")
	return nil
}

// BootstrapPassword sets a password for email, gated by the out-of-band setup
// secret. Used to provision the first credentials. The secret comparison is
// constant-time, and an unconfigured secret disables the operation entirely.
func (s *AuthService) BootstrapPassword(ctx context.Context, email, newPassword, setupSecret, ip string) (*userdomain.User, error) {
	if s.bootstrapSecret == "" || !security.SecretEqual(setupSecret, s.bootstrapSecret) {
		return nil, ErrBadBootstrapSecret
	}
	if len(newPassword) < minPasswordLength {
		return nil, &WeakPasswordError{Reason: fmt.Sprintf("password must be at least %d characters", minPasswordLength)}
	}
	email = userdomain.NormalizeEmail(email)
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash, s.nowFn()); err != nil {
		return nil, err
	}
	s.logEvent(ctx, user.ID, auditdomain.ActionPasswordBootstrap, ip, "")
	return user, nil
}

const minPasswordLength = 12

// ValidatePasswordPolicy checks the password-change policy: minimum length
// plus upper, lower, digit, and special character classes. Returns a
// WeakPasswordError naming the first violation.
func ValidatePasswordPolicy(password string) error {
	if len(password) < minPasswordLength {
		return &WeakPasswordError{Reason: fmt.Sprintf("password must be at least %d characters", minPasswordLength)}
	}
	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		default:
			hasSpecial = true
		}
	}
	switch {
	case !hasUpper:
		return &WeakPasswordError{Reason: "password must contain at least one uppercase letter"}
	case !hasLower:
		return &WeakPasswordError{Reason: "password must contain at least one lowercase letter"}
	case !hasDigit:
		return &WeakPasswordError{Reason: "password must contain at least one number"}
	case !hasSpecial:
		return &WeakPasswordError{Reason: "password must contain at least one special character"}
	}
	return nil
}

func (s *AuthService) logEvent(ctx context.Context, userID, action, ip, metadata string) {
	if s.audit != nil {
		s.audit.LogEvent(ctx, userID, action, "auth", ip, metadata)
	}
}
