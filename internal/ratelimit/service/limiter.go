// Package service implements the per-credential login rate limiter: a fixed
// count of failures inside a window anchored at the first failure triggers a
// fixed-duration block.
package service

import (
	"context"
	"time"

	"asset-manager/backend/internal/ratelimit/domain"
	"asset-manager/backend/internal/ratelimit/repository"
)

const (
	DefaultMaxAttempts   = 5
	DefaultWindow        = 15 * time.Minute
	DefaultBlockDuration = 15 * time.Minute
)

// Limiter evaluates and mutates rate-limit state. Stateless; all records live
// in the repository.
type Limiter struct {
	repo        repository.Repository
	maxAttempts int
	window      time.Duration
	block       time.Duration
	nowFn       func() time.Time
}

// NewLimiter returns a Limiter with the given policy. Non-positive values fall
// back to the defaults.
func NewLimiter(repo repository.Repository, maxAttempts int, window, block time.Duration) *Limiter {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if block <= 0 {
		block = DefaultBlockDuration
	}
	return &Limiter{
		repo:        repo,
		maxAttempts: maxAttempts,
		window:      window,
		block:       block,
		nowFn:       func() time.Time { return time.Now().UTC() },
	}
}

// Check reports the current state for key without mutating it.
func (l *Limiter) Check(ctx context.Context, key string) (*domain.State, error) {
	rec, err := l.repo.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	now := l.nowFn()
	if rec == nil {
		return &domain.State{RemainingAttempts: l.maxAttempts}, nil
	}
	if rec.BlockedUntil != nil && rec.BlockedUntil.After(now) {
		until := *rec.BlockedUntil
		return &domain.State{Blocked: true, BlockedUntil: &until}, nil
	}
	remaining := l.maxAttempts - rec.Attempts
	if remaining < 0 {
		remaining = 0
	}
	return &domain.State{RemainingAttempts: remaining}, nil
}

// RegisterFailure counts one failed attempt for key and returns the resulting
// state. An attempt during an active block reports the block without
// extending it; the counter resets when the window anchored at the first
// failure has elapsed.
func (l *Limiter) RegisterFailure(ctx context.Context, key string) (*domain.State, error) {
	now := l.nowFn()
	rec, err := l.repo.RegisterFailure(ctx, key, now, l.window, l.block, l.maxAttempts)
	if err != nil {
		return nil, err
	}
	if rec.BlockedUntil != nil && rec.BlockedUntil.After(now) {
		until := *rec.BlockedUntil
		return &domain.State{Blocked: true, BlockedUntil: &until}, nil
	}
	remaining := l.maxAttempts - rec.Attempts
	if remaining < 0 {
		remaining = 0
	}
	return &domain.State{RemainingAttempts: remaining}, nil
}

// Clear resets the record for key after a successful login, so legitimate
// successes always wipe prior failure history.
func (l *Limiter) Clear(ctx context.Context, key string) error {
	return l.repo.Clear(ctx, key, l.nowFn())
}
