package auth

import (
	"testing"
	"time"

	"github.com/natours/natours/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginGuard_BlocksOnThirdFailure(t *testing.T) {
	g := NewLoginGuard()
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	a := &domain.Account{}

	g.RecordFailure(a, now)
	g.RecordFailure(a, now)
	assert.Equal(t, 2, a.LoginAttempts)
	assert.False(t, a.IsBlocked)

	g.RecordFailure(a, now)
	assert.True(t, a.IsBlocked)
	require.NotNil(t, a.UnblockTime)
	assert.Equal(t, now.Add(LockoutWindow), *a.UnblockTime)
}

func TestLoginGuard_RecordSuccessResets(t *testing.T) {
	g := NewLoginGuard()
	for _, prior := range []int{0, 1, 2} {
		a := &domain.Account{LoginAttempts: prior}
		g.RecordSuccess(a)
		assert.Equal(t, 0, a.LoginAttempts)
	}
}

func TestLoginGuard_IsCurrentlyBlocked(t *testing.T) {
	g := NewLoginGuard()
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	until := now.Add(4 * time.Minute)

	tests := []struct {
		name          string
		account       domain.Account
		at            time.Time
		wantBlocked   bool
		wantRemaining time.Duration
	}{
		{name: "not blocked", account: domain.Account{}, at: now},
		{name: "blocked, window open", account: domain.Account{IsBlocked: true, UnblockTime: &until}, at: now, wantBlocked: true, wantRemaining: 4 * time.Minute},
		{name: "blocked, exactly at unblock time", account: domain.Account{IsBlocked: true, UnblockTime: &until}, at: until},
		{name: "blocked, window passed", account: domain.Account{IsBlocked: true, UnblockTime: &until}, at: until.Add(time.Second)},
		{name: "blocked without unblock time", account: domain.Account{IsBlocked: true}, at: now},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := tt.account
			remaining, blocked := g.IsCurrentlyBlocked(&a, tt.at)
			assert.Equal(t, tt.wantBlocked, blocked)
			assert.Equal(t, tt.wantRemaining, remaining)
			assert.Equal(t, tt.account, a, "read must not mutate")
		})
	}
}

func TestLoginGuard_CorrectClearsExpiredBlock(t *testing.T) {
	g := NewLoginGuard()
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	until := now.Add(-time.Second)
	a := &domain.Account{IsBlocked: true, LoginAttempts: 3, UnblockTime: &until}

	assert.True(t, g.Correct(a, now))
	assert.False(t, a.IsBlocked)
	assert.Equal(t, 0, a.LoginAttempts)
	assert.Nil(t, a.UnblockTime)

	assert.False(t, g.Correct(a, now), "already normal")
}

func TestLoginGuard_CorrectKeepsActiveBlock(t *testing.T) {
	g := NewLoginGuard()
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	until := now.Add(time.Minute)
	a := &domain.Account{IsBlocked: true, LoginAttempts: 3, UnblockTime: &until}

	assert.False(t, g.Correct(a, now))
	assert.True(t, a.IsBlocked)
	assert.Equal(t, 3, a.LoginAttempts)
}

func TestLoginGuard_Admit(t *testing.T) {
	g := NewLoginGuard()
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	a := &domain.Account{}

	for i := 0; i < MaxLoginAttempts; i++ {
		require.NoError(t, g.Admit(a, now))
		g.RecordFailure(a, now)
	}

	err := g.Admit(a, now.Add(3*time.Minute))
	var locked *domain.AccountLockedError
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, 7*time.Minute, locked.Remaining)

	// No escalation: once the window passes the account starts over.
	require.NoError(t, g.Admit(a, now.Add(LockoutWindow)))
	assert.Equal(t, 0, a.LoginAttempts)
	assert.False(t, a.IsBlocked)

	g.RecordFailure(a, now.Add(LockoutWindow))
	assert.Equal(t, 1, a.LoginAttempts)
	assert.False(t, a.IsBlocked)
}
