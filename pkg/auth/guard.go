package auth

import (
	"time"

	"github.com/natours/natours/pkg/domain"
)

// Lockout policy. The window does not grow on repeated lockouts.
const (
	MaxLoginAttempts = 3
	LockoutWindow    = 10 * time.Minute
)

// LoginGuard tracks consecutive failed logins per account and blocks the
// account for a fixed window once the limit is reached. Blocks expire lazily:
// a stale block is corrected the next time the account tries to log in.
type LoginGuard struct {
	maxAttempts int
	window      time.Duration
}

// NewLoginGuard creates a guard with the standard policy.
func NewLoginGuard() *LoginGuard {
	return &LoginGuard{maxAttempts: MaxLoginAttempts, window: LockoutWindow}
}

// IsCurrentlyBlocked reports whether the account is blocked at now and how
// long the block still lasts. It does not modify the account.
func (g *LoginGuard) IsCurrentlyBlocked(a *domain.Account, now time.Time) (time.Duration, bool) {
	if !a.IsBlocked || a.UnblockTime == nil {
		return 0, false
	}
	remaining := a.UnblockTime.Sub(now)
	if remaining <= 0 {
		return 0, false
	}
	return remaining, true
}

// Correct clears an expired block, returning the account to a clean state.
// It reports whether the account was changed.
func (g *LoginGuard) Correct(a *domain.Account, now time.Time) bool {
	if !a.IsBlocked {
		return false
	}
	if _, blocked := g.IsCurrentlyBlocked(a, now); blocked {
		return false
	}
	a.IsBlocked = false
	a.LoginAttempts = 0
	a.UnblockTime = nil
	return true
}

// Admit corrects a stale block and then rejects the attempt with a
// *domain.AccountLockedError if the account is still blocked.
func (g *LoginGuard) Admit(a *domain.Account, now time.Time) error {
	g.Correct(a, now)
	if remaining, blocked := g.IsCurrentlyBlocked(a, now); blocked {
		return &domain.AccountLockedError{Remaining: remaining}
	}
	return nil
}

// RecordFailure counts a failed attempt and blocks the account when the
// limit is reached.
func (g *LoginGuard) RecordFailure(a *domain.Account, now time.Time) {
	a.LoginAttempts++
	if a.LoginAttempts >= g.maxAttempts {
		until := now.Add(g.window)
		a.IsBlocked = true
		a.UnblockTime = &until
	}
}

// RecordSuccess resets the attempt counter.
func (g *LoginGuard) RecordSuccess(a *domain.Account) {
	a.LoginAttempts = 0
	a.IsBlocked = false
	a.UnblockTime = nil
}
