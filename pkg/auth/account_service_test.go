package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/natours/natours/pkg/domain"
	"github.com/natours/natours/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeMailer struct {
	mu        sync.Mutex
	fail      error
	welcomes  []string
	resetURLs []string
}

func (m *fakeMailer) SendWelcome(_ context.Context, a *domain.Account, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.welcomes = append(m.welcomes, a.Email)
	return m.fail
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, _ *domain.Account, resetURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.resetURLs = append(m.resetURLs, resetURL)
	return nil
}

func (m *fakeMailer) lastResetToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.resetURLs)
	return m.resetURLs[len(m.resetURLs)-1]
}

type testEnv struct {
	svc    *AccountService
	store  *repository.MemoryAccountStore
	mailer *fakeMailer
	gate   *Gate
	clock  *time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	env := &testEnv{
		store:  repository.NewMemoryAccountStore(),
		mailer: &fakeMailer{},
		clock:  &clock,
	}
	now := func() time.Time { return *env.clock }
	tokens := newTestTokenService(now)
	env.svc = NewAccountService(
		AccountConfig{BcryptCost: bcrypt.MinCost},
		env.store,
		tokens,
		env.mailer,
		nil,
		WithClock(now),
	)
	env.gate = NewGate(tokens, env.store)
	return env
}

func (e *testEnv) advance(d time.Duration) {
	*e.clock = e.clock.Add(d)
}

func (e *testEnv) signup(t *testing.T, email, password string) *Session {
	t.Helper()
	s, err := e.svc.Signup(context.Background(), SignupInput{
		Name:            "Jonas",
		Email:           email,
		Password:        password,
		PasswordConfirm: password,
	}, "http://localhost/me")
	require.NoError(t, err)
	return s
}

// identity returns the reset token itself; the URL is the token.
func identity(token string) string { return token }

func TestAccountService_Signup(t *testing.T) {
	env := newTestEnv(t)

	s := env.signup(t, "  Jonas@Example.com ", "abcd1234")
	assert.NotEmpty(t, s.Token)
	assert.Equal(t, "jonas@example.com", s.Account.Email)
	assert.Equal(t, domain.RoleUser, s.Account.Role)
	assert.Equal(t, domain.DefaultPhoto, s.Account.Photo)
	assert.True(t, s.Account.Active)
	assert.NotEqual(t, "abcd1234", s.Account.PasswordHash)
	assert.Equal(t, []string{"jonas@example.com"}, env.mailer.welcomes)

	_, err := env.gate.Resolve(context.Background(), s.Token)
	assert.NoError(t, err)
}

func TestAccountService_Signup_ConfirmMismatch(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Signup(context.Background(), SignupInput{
		Name:            "Jonas",
		Email:           "jonas@example.com",
		Password:        "abcd1234",
		PasswordConfirm: "abcd1234X",
	}, "")

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Passwords do not match", verr.Fields["passwordConfirm"])
	assert.Zero(t, env.store.Len())
}

func TestAccountService_Signup_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		in    SignupInput
		field string
	}{
		{name: "missing name", in: SignupInput{Email: "a@b.co", Password: "abcd1234", PasswordConfirm: "abcd1234"}, field: "name"},
		{name: "bad email", in: SignupInput{Name: "A", Email: "nope", Password: "abcd1234", PasswordConfirm: "abcd1234"}, field: "email"},
		{name: "short password", in: SignupInput{Name: "A", Email: "a@b.co", Password: "abc", PasswordConfirm: "abc"}, field: "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			_, err := env.svc.Signup(context.Background(), tt.in, "")
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
			assert.Zero(t, env.store.Len())
		})
	}
}

func TestAccountService_Signup_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "jonas@example.com", "abcd1234")

	_, err := env.svc.Signup(context.Background(), SignupInput{
		Name: "Other", Email: "JONAS@example.com", Password: "abcd1234", PasswordConfirm: "abcd1234",
	}, "")
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestAccountService_Signup_WelcomeMailFailureIsNotFatal(t *testing.T) {
	env := newTestEnv(t)
	env.mailer.fail = errors.New("smtp down")

	s := env.signup(t, "jonas@example.com", "abcd1234")
	assert.NotEmpty(t, s.Token)
	assert.Equal(t, 1, env.store.Len())
}

func TestAccountService_Login(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.signup(t, "jonas@example.com", "abcd1234")

	s, err := env.svc.Login(ctx, "jonas@example.com", "abcd1234")
	require.NoError(t, err)
	assert.NotEmpty(t, s.Token)

	_, err = env.svc.Login(ctx, "jonas@example.com", "wrong-pass")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = env.svc.Login(ctx, "nobody@example.com", "abcd1234")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = env.svc.Login(ctx, "", "abcd1234")
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestAccountService_Login_Lockout(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	s := env.signup(t, "jonas@example.com", "abcd1234")

	for i := 0; i < MaxLoginAttempts; i++ {
		_, err := env.svc.Login(ctx, "jonas@example.com", "wrong-pass")
		require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	}

	stored, err := env.store.FindByID(ctx, s.Account.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsBlocked)
	assert.Equal(t, MaxLoginAttempts, stored.LoginAttempts)

	// The correct password is refused while the block lasts.
	env.advance(2*time.Minute + 30*time.Second)
	_, err = env.svc.Login(ctx, "jonas@example.com", "abcd1234")
	var locked *domain.AccountLockedError
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, 7*time.Minute+30*time.Second, locked.Remaining)
	assert.Equal(t, "Too many incorrect login attempts. Please wait for 7 minutes 30 seconds before trying again", locked.Error())

	env.advance(7*time.Minute + 30*time.Second)
	_, err = env.svc.Login(ctx, "jonas@example.com", "abcd1234")
	require.NoError(t, err)

	stored, err = env.store.FindByID(ctx, s.Account.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsBlocked)
	assert.Zero(t, stored.LoginAttempts)
	assert.Nil(t, stored.UnblockTime)
}

func TestAccountService_Login_SuccessResetsCounter(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	s := env.signup(t, "jonas@example.com", "abcd1234")

	for i := 0; i < MaxLoginAttempts-1; i++ {
		_, err := env.svc.Login(ctx, "jonas@example.com", "wrong-pass")
		require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	}
	_, err := env.svc.Login(ctx, "jonas@example.com", "abcd1234")
	require.NoError(t, err)

	stored, err := env.store.FindByID(ctx, s.Account.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.LoginAttempts)
	assert.False(t, stored.IsBlocked)
}

func TestAccountService_ResetPassword(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	s := env.signup(t, "jonas@example.com", "abcd1234")
	oldToken := s.Token

	require.NoError(t, env.svc.ForgotPassword(ctx, "jonas@example.com", identity))
	token := env.mailer.lastResetToken(t)
	assert.Len(t, token, 64)

	stored, err := env.store.FindByID(ctx, s.Account.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.PasswordResetToken)
	assert.Equal(t, HashToken(token), *stored.PasswordResetToken, "only the digest is stored")

	env.advance(time.Minute)
	reset, err := env.svc.ResetPassword(ctx, token, PasswordInput{Password: "newpass123", PasswordConfirm: "newpass123"})
	require.NoError(t, err)

	_, err = env.gate.Resolve(ctx, reset.Token)
	assert.NoError(t, err, "token issued right after the change is valid")

	_, err = env.gate.Resolve(ctx, oldToken)
	assert.ErrorIs(t, err, domain.ErrPasswordChangedSinceIssue)

	_, err = env.svc.Login(ctx, "jonas@example.com", "newpass123")
	assert.NoError(t, err)

	_, err = env.svc.ResetPassword(ctx, token, PasswordInput{Password: "again1234", PasswordConfirm: "again1234"})
	assert.ErrorIs(t, err, domain.ErrResetTokenInvalid, "reset tokens are single-use")
}

func TestAccountService_ResetPassword_Expiry(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		wantErr error
	}{
		{name: "just before expiry", elapsed: 9*time.Minute + 59*time.Second},
		{name: "just after expiry", elapsed: 10*time.Minute + time.Second, wantErr: domain.ErrResetTokenInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			env := newTestEnv(t)
			env.signup(t, "jonas@example.com", "abcd1234")

			require.NoError(t, env.svc.ForgotPassword(ctx, "jonas@example.com", identity))
			token := env.mailer.lastResetToken(t)

			env.advance(tt.elapsed)
			_, err := env.svc.ResetPassword(ctx, token, PasswordInput{Password: "newpass123", PasswordConfirm: "newpass123"})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestAccountService_ResetPassword_Mismatch(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.signup(t, "jonas@example.com", "abcd1234")

	require.NoError(t, env.svc.ForgotPassword(ctx, "jonas@example.com", identity))
	token := env.mailer.lastResetToken(t)

	_, err := env.svc.ResetPassword(ctx, token, PasswordInput{Password: "newpass123", PasswordConfirm: "newpass124"})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)

	// The token survives a rejected attempt.
	_, err = env.svc.ResetPassword(ctx, token, PasswordInput{Password: "newpass123", PasswordConfirm: "newpass123"})
	assert.NoError(t, err)
}

func TestAccountService_ForgotPassword_UnknownEmail(t *testing.T) {
	env := newTestEnv(t)
	assert.NoError(t, env.svc.ForgotPassword(context.Background(), "nobody@example.com", identity))
	assert.Empty(t, env.mailer.resetURLs)
}

func TestAccountService_ForgotPassword_MailFailureWithdrawsToken(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	s := env.signup(t, "jonas@example.com", "abcd1234")
	env.mailer.fail = errors.New("smtp down")

	err := env.svc.ForgotPassword(ctx, "jonas@example.com", identity)
	assert.ErrorIs(t, err, domain.ErrDependencyUnavailable)

	stored, err := env.store.FindByID(ctx, s.Account.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.PasswordResetToken)
	assert.Nil(t, stored.PasswordResetExpires)
}

type failingSaveStore struct {
	repository.AccountStore
	err error
}

func (s failingSaveStore) Save(context.Context, *domain.Account) error {
	return s.err
}

func TestAccountService_ForgotPassword_SaveFailure(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	s := env.signup(t, "jonas@example.com", "abcd1234")

	svc := NewAccountService(
		AccountConfig{BcryptCost: bcrypt.MinCost},
		failingSaveStore{AccountStore: env.store, err: errors.New("write conflict")},
		newTestTokenService(time.Now),
		env.mailer,
		nil,
	)

	err := svc.ForgotPassword(ctx, "jonas@example.com", identity)
	assert.ErrorIs(t, err, domain.ErrDependencyUnavailable)
	assert.Empty(t, env.mailer.resetURLs, "no mail for a token that was never stored")

	stored, err := env.store.FindByID(ctx, s.Account.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.PasswordResetToken)
}

func TestAccountService_PasswordTooLong(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	long := strings.Repeat("a", 80)

	_, err := env.svc.Signup(ctx, SignupInput{
		Name: "Jonas", Email: "jonas@example.com", Password: long, PasswordConfirm: long,
	}, "http://localhost/me")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "password")

	// Under 72 characters, over 72 bytes.
	wide := strings.Repeat("ü", 40)
	s := env.signup(t, "lisa@example.com", "abcd1234")
	_, err = env.svc.UpdatePassword(ctx, s.Account, UpdatePasswordInput{
		PasswordCurrent: "abcd1234", Password: wide, PasswordConfirm: wide,
	})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "password")
}

func TestAccountService_UpdateMe(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	s := env.signup(t, "jonas@example.com", "abcd1234")
	env.signup(t, "lisa@example.com", "abcd1234")

	updated, err := env.svc.UpdateMe(ctx, s.Account, UpdateMeInput{Name: " Tom & Jerry ", Email: " Tom@Example.COM"})
	require.NoError(t, err)
	assert.Equal(t, "Tom & Jerry", updated.Name)
	assert.Equal(t, "tom@example.com", updated.Email)
	assert.Equal(t, "jonas@example.com", s.Account.Email, "caller's account is not modified")

	stored, err := env.store.FindByID(ctx, s.Account.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tom & Jerry", stored.Name)
	assert.Equal(t, "tom@example.com", stored.Email)

	_, err = env.svc.Login(ctx, "tom@example.com", "abcd1234")
	assert.NoError(t, err)

	// Only the name.
	updated, err = env.svc.UpdateMe(ctx, stored, UpdateMeInput{Name: "Tom"})
	require.NoError(t, err)
	assert.Equal(t, "Tom", updated.Name)
	assert.Equal(t, "tom@example.com", updated.Email)
}

func TestAccountService_UpdateMe_Invalid(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	s := env.signup(t, "jonas@example.com", "abcd1234")
	env.signup(t, "lisa@example.com", "abcd1234")

	tests := []struct {
		name  string
		in    UpdateMeInput
		field string
	}{
		{name: "nothing to update", in: UpdateMeInput{Name: "  "}, field: "body"},
		{name: "bad email", in: UpdateMeInput{Email: "not-an-email"}, field: "email"},
		{name: "long name", in: UpdateMeInput{Name: strings.Repeat("n", 101)}, field: "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.UpdateMe(ctx, s.Account, tt.in)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}

	_, err := env.svc.UpdateMe(ctx, s.Account, UpdateMeInput{Email: "LISA@example.com"})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestAccountService_UpdatePassword(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	s := env.signup(t, "jonas@example.com", "abcd1234")

	_, err := env.svc.UpdatePassword(ctx, s.Account, UpdatePasswordInput{
		PasswordCurrent: "wrong-pass", Password: "newpass123", PasswordConfirm: "newpass123",
	})
	assert.ErrorIs(t, err, domain.ErrIncorrectPassword)

	env.advance(time.Minute)
	updated, err := env.svc.UpdatePassword(ctx, s.Account, UpdatePasswordInput{
		PasswordCurrent: "abcd1234", Password: "newpass123", PasswordConfirm: "newpass123",
	})
	require.NoError(t, err)

	_, err = env.gate.Resolve(ctx, s.Token)
	assert.ErrorIs(t, err, domain.ErrPasswordChangedSinceIssue)
	_, err = env.gate.Resolve(ctx, updated.Token)
	assert.NoError(t, err)
}

func TestAccountService_Deactivate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	s := env.signup(t, "jonas@example.com", "abcd1234")

	require.NoError(t, env.svc.Deactivate(ctx, s.Account))

	_, err := env.svc.Get(ctx, s.Account.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = env.svc.Login(ctx, "jonas@example.com", "abcd1234")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = env.gate.Resolve(ctx, s.Token)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}
