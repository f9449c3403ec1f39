package domain

import "time"

// AuditLog is one security-relevant event. UserID may be empty for events with
// no resolved user (e.g. a failed login for an unknown email).
type AuditLog struct {
	ID        string
	UserID    string
	Action    string
	Resource  string
	IP        string
	Metadata  string // free-form JSON or short text; never credentials
	CreatedAt time.Time
}

// Actions recorded by the identity core.
const (
	ActionLoginSuccess      = "login_success"
	ActionLoginFailure      = "login_failure"
	ActionLoginBlocked      = "login_blocked"
	ActionLogout            = "logout"
	ActionPasswordChange    = "password_change"
	ActionPasswordBootstrap = "password_bootstrap"
	ActionUserCreated       = "user_created"
)
