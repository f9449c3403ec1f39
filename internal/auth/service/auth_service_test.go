package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	ratelimitdomain "asset-manager/backend/internal/ratelimit/domain"
	"asset-manager/backend/internal/security"
	sessionsvc "asset-manager/backend/internal/session/service"
	userdomain "asset-manager/backend/internal/user/domain"
)

type memUserRepo struct {
	mu      sync.Mutex
	byID    map[string]*userdomain.User
	byEmail map[string]*userdomain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[string]*userdomain.User{}, byEmail: map[string]*userdomain.User{}}
}

func (r *memUserRepo) add(u *userdomain.User) {
	r.byID[u.ID] = u
	r.byEmail[u.Email] = u
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id], nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byEmail[email], nil
}

func (r *memUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return errors.New("no such user")
	}
	u.PasswordHash = passwordHash
	t := at
	u.PasswordUpdatedAt = &t
	return nil
}

type fakeSessionManager struct {
	mu       sync.Mutex
	created  []string // user IDs, in order
	revoked  []string // raw tokens
	revokedA []string // user IDs passed to RevokeAll
	nextTok  int
}

func (m *fakeSessionManager) Create(ctx context.Context, userID string, meta sessionsvc.ClientMeta) (string, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, userID)
	m.nextTok++
	return fmt.Sprintf("token-%d", m.nextTok), time.Now().Add(14 * 24 * time.Hour), nil
}

func (m *fakeSessionManager) Revoke(ctx context.Context, rawToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rawToken != "" {
		m.revoked = append(m.revoked, rawToken)
	}
	return nil
}

func (m *fakeSessionManager) RevokeAll(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revokedA = append(m.revokedA, userID)
	return nil
}

// fakeLimiter applies the real window/threshold arithmetic in memory.
type fakeLimiter struct {
	mu       sync.Mutex
	attempts map[string]int
	blocked  map[string]time.Time
	cleared  []string
	now      time.Time
}

func newFakeLimiter(now time.Time) *fakeLimiter {
	return &fakeLimiter{attempts: map[string]int{}, blocked: map[string]time.Time{}, now: now}
}

func (l *fakeLimiter) Check(ctx context.Context, key string) (*ratelimitdomain.State, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if until, ok := l.blocked[key]; ok && until.After(l.now) {
		u := until
		return &ratelimitdomain.State{Blocked: true, BlockedUntil: &u}, nil
	}
	remaining := 5 - l.attempts[key]
	if remaining < 0 {
		remaining = 0
	}
	return &ratelimitdomain.State{RemainingAttempts: remaining}, nil
}

func (l *fakeLimiter) RegisterFailure(ctx context.Context, key string) (*ratelimitdomain.State, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if until, ok := l.blocked[key]; ok && until.After(l.now) {
		u := until
		return &ratelimitdomain.State{Blocked: true, BlockedUntil: &u}, nil
	}
	l.attempts[key]++
	if l.attempts[key] >= 5 {
		until := l.now.Add(15 * time.Minute)
		l.blocked[key] = until
		u := until
		return &ratelimitdomain.State{Blocked: true, BlockedUntil: &u}, nil
	}
	return &ratelimitdomain.State{RemainingAttempts: 5 - l.attempts[key]}, nil
}

func (l *fakeLimiter) Clear(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, key)
	delete(l.blocked, key)
	l.cleared = append(l.cleared, key)
	return nil
}

func testHasher() *security.PasswordHasher {
	return security.NewPasswordHasher(1024, 8, 1)
}

func mustHash(t *testing.T, h *security.PasswordHasher, password string) string {
	t.Helper()
	encoded, err := h.Hash(password)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	return encoded
}

func testService(t *testing.T) (*AuthService, *memUserRepo, *fakeSessionManager, *fakeLimiter) {
	t.Helper()
	users := newMemUserRepo()
	sessions := &fakeSessionManager{}
	limiter := newFakeLimiter(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := NewAuthService(users, sessions, limiter, testHasher(), nil, "setup-secret")
	return svc, users, sessions, limiter
}

func seedUser(t *testing.T, users *memUserRepo, email, password string) *userdomain.User {
	t.Helper()
	u := &userdomain.User{
		ID:           "user-1",
		Name:         "IT Admin",
		Email:        email,
		Role:         userdomain.RoleITAdmin,
		PasswordHash: mustHash(t, testHasher(), password),
		CreatedAt:    time.Now(),
	}
	users.add(u)
	return u
}

func TestLoginSuccess(t *testing.T) {
	svc, users, sessions, limiter := testService(t)
	seedUser(t, users, "it.admin@company.local", "Str0ng&Secret!")

	res, err := svc.Login(context.Background(), "IT.Admin@Company.Local", "Str0ng&Secret!",
		sessionsvc.ClientMeta{IPAddress: "10.0.0.1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.User.ID != "user-1" || res.Token == "" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(sessions.created) != 1 || sessions.created[0] != "user-1" {
		t.Fatalf("session not created for user-1: %v", sessions.created)
	}
	if len(limiter.cleared) != 1 {
		t.Fatal("successful login did not clear the rate limit")
	}
}

func TestLoginUnknownEmailCountsFailure(t *testing.T) {
	svc, _, sessions, _ := testService(t)

	_, err := svc.Login(context.Background(), "nobody@company.local", "whatever",
		sessionsvc.ClientMeta{IPAddress: "10.0.0.1"})
	var invalid *InvalidCredentialsError
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want InvalidCredentialsError", err)
	}
	if invalid.Remaining != 4 {
		t.Fatalf("remaining = %d, want 4", invalid.Remaining)
	}
	if len(sessions.created) != 0 {
		t.Fatal("session created for failed login")
	}
}

func TestLoginWrongPasswordSameShapeAsUnknownEmail(t *testing.T) {
	svc, users, _, _ := testService(t)
	seedUser(t, users, "it.admin@company.local", "Str0ng&Secret!")

	_, errWrong := svc.Login(context.Background(), "it.admin@company.local", "bad-password",
		sessionsvc.ClientMeta{IPAddress: "10.0.0.1"})
	_, errUnknown := svc.Login(context.Background(), "ghost@company.local", "bad-password",
		sessionsvc.ClientMeta{IPAddress: "10.0.0.1"})

	var a, b *InvalidCredentialsError
	if !errors.As(errWrong, &a) || !errors.As(errUnknown, &b) {
		t.Fatalf("errors differ in type: %v vs %v", errWrong, errUnknown)
	}
	if a.Error() != b.Error() {
		t.Fatalf("messages differ: %q vs %q", a.Error(), b.Error())
	}
}

func TestLoginBlockedEvenWithCorrectPassword(t *testing.T) {
	svc, users, sessions, _ := testService(t)
	seedUser(t, users, "it.admin@company.local", "Str0ng&Secret!")
	meta := sessionsvc.ClientMeta{IPAddress: "10.0.0.1"}

	for i := 0; i < 5; i++ {
		_, err := svc.Login(context.Background(), "it.admin@company.local", "bad-password", meta)
		if err == nil {
			t.Fatal("wrong password accepted")
		}
	}

	_, err := svc.Login(context.Background(), "it.admin@company.local", "Str0ng&Secret!", meta)
	var limited *RateLimitedError
	if !errors.As(err, &limited) {
		t.Fatalf("6th attempt err = %v, want RateLimitedError", err)
	}
	if limited.Until.IsZero() {
		t.Fatal("RateLimitedError carries no expiry")
	}
	if len(sessions.created) != 0 {
		t.Fatal("session created while blocked")
	}
}

func TestLoginDifferentIPNotBlocked(t *testing.T) {
	svc, users, _, _ := testService(t)
	seedUser(t, users, "it.admin@company.local", "Str0ng&Secret!")

	for i := 0; i < 5; i++ {
		_, _ = svc.Login(context.Background(), "it.admin@company.local", "bad-password",
			sessionsvc.ClientMeta{IPAddress: "10.0.0.1"})
	}
	// The limiter key binds (email, IP); another origin gets its own budget.
	if _, err := svc.Login(context.Background(), "it.admin@company.local", "Str0ng&Secret!",
		sessionsvc.ClientMeta{IPAddress: "10.0.0.2"}); err != nil {
		t.Fatalf("login from a different IP blocked: %v", err)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	svc, _, sessions, _ := testService(t)
	if err := svc.Logout(context.Background(), "some-token", "10.0.0.1"); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if err := svc.Logout(context.Background(), "some-token", "10.0.0.1"); err != nil {
		t.Fatalf("second Logout: %v", err)
	}
	if err := svc.Logout(context.Background(), "", "10.0.0.1"); err != nil {
		t.Fatalf("Logout without token: %v", err)
	}
	if len(sessions.revoked) != 2 {
		t.Fatalf("revoked %d tokens, want 2", len(sessions.revoked))
	}
}

func TestChangePassword(t *testing.T) {
	svc, users, sessions, _ := testService(t)
	u := seedUser(t, users, "it.admin@company.local", "Str0ng&Secret!")
	oldHash := u.PasswordHash

	err := svc.ChangePassword(context.Background(), u.ID, "Str0ng&Secret!", "N3w&Stronger!!", "10.0.0.1")
	if err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if u.PasswordHash == oldHash {
		t.Fatal("password hash unchanged")
	}
	if u.PasswordUpdatedAt == nil {
		t.Fatal("password_updated_at not set")
	}
	if len(sessions.revokedA) != 1 || sessions.revokedA[0] != u.ID {
		t.Fatalf("sessions not revoked for %s: %v", u.ID, sessions.revokedA)
	}
}

func TestChangePasswordRejections(t *testing.T) {
	svc, users, _, _ := testService(t)
	u := seedUser(t, users, "it.admin@company.local", "Str0ng&Secret!")

	cases := []struct {
		name     string
		current  string
		next     string
		wantWeak bool
		wantErr  error
	}{
		{name: "wrong current", current: "not-it", next: "N3w&Stronger!!"},
		{name: "too short", current: "Str0ng&Secret!", next: "Sh0rt!", wantWeak: true},
		{name: "no uppercase", current: "Str0ng&Secret!", next: "n3w&stronger!!", wantWeak: true},
		{name: "no digit", current: "Str0ng&Secret!", next: "New&Stronger!!!", wantWeak: true},
		{name: "no special", current: "Str0ng&Secret!", next: "N3wAndStronger1", wantWeak: true},
		{name: "reuse", current: "Str0ng&Secret!", next: "Str0ng&Secret!", wantErr: ErrSamePassword},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.ChangePassword(context.Background(), u.ID, tc.current, tc.next, "")
			if err == nil {
				t.Fatal("change accepted")
			}
			if tc.wantWeak {
				var weak *WeakPasswordError
				if !errors.As(err, &weak) {
					t.Fatalf("err = %v, want WeakPasswordError", err)
				}
				return
			}
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err = %v, want %v", err, tc.wantErr)
				}
				return
			}
			var invalid *InvalidCredentialsError
			if !errors.As(err, &invalid) {
				t.Fatalf("err = %v, want InvalidCredentialsError", err)
			}
		})
	}
}

func TestBootstrapPassword(t *testing.T) {
	svc, users, _, _ := testService(t)
	u := &userdomain.User{ID: "user-2", Name: "IT Manager", Email: "it.manager@company.local", Role: userdomain.RoleITManager}
	users.add(u)

	if _, err := svc.BootstrapPassword(context.Background(), u.Email, "Fresh&Start123", "wrong", ""); !errors.Is(err, ErrBadBootstrapSecret) {
		t.Fatalf("wrong secret err = %v", err)
	}
	if _, err := svc.BootstrapPassword(context.Background(), u.Email, "short", "setup-secret", ""); err == nil {
		t.Fatal("short password accepted")
	}
	if _, err := svc.BootstrapPassword(context.Background(), "ghost@company.local", "Fresh&Start123", "setup-secret", ""); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("unknown email err = %v", err)
	}

	got, err := svc.BootstrapPassword(context.Background(), "IT.Manager@Company.Local", "Fresh&Start123", "setup-secret", "")
	if err != nil {
		t.Fatalf("BootstrapPassword: %v", err)
	}
	if got.ID != u.ID || u.PasswordHash == "" {
		t.Fatalf("bootstrap did not set a password: %+v", u)
	}
	if !testHasher().Verify("Fresh&Start123", u.PasswordHash) {
		t.Fatal("stored hash does not verify the new password")
	}
}

func TestBootstrapDisabledWithoutSecret(t *testing.T) {
	users := newMemUserRepo()
	svc := NewAuthService(users, &fakeSessionManager{}, newFakeLimiter(time.Now()), testHasher(), nil, "")
	// An empty configured secret must reject even an empty provided secret.
	if _, err := svc.BootstrapPassword(context.Background(), "a@b.c", "Fresh&Start123", "", ""); !errors.Is(err, ErrBadBootstrapSecret) {
		t.Fatalf("err = %v, want ErrBadBootstrapSecret", err)
	}
}
