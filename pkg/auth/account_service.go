package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/natours/natours/pkg/domain"
	"github.com/natours/natours/pkg/repository"
)

// Mailer delivers account notifications.
type Mailer interface {
	SendWelcome(ctx context.Context, account *domain.Account, url string) error
	SendPasswordReset(ctx context.Context, account *domain.Account, resetURL string) error
}

// AccountConfig holds account service configuration.
type AccountConfig struct {
	BcryptCost int
	Policy     *PasswordPolicy
}

// AccountService implements signup, login and the password flows on top of
// the account store, the login guard and the token service.
type AccountService struct {
	config   AccountConfig
	accounts repository.AccountStore
	tokens   *TokenService
	guard    *LoginGuard
	mailer   Mailer
	logger   *slog.Logger
	now      func() time.Time
}

// Option customizes an AccountService.
type Option func(*AccountService)

// WithClock replaces the wall clock used for lockout and token timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *AccountService) {
		s.now = now
		s.tokens.now = now
	}
}

// NewAccountService creates a new account service.
func NewAccountService(
	config AccountConfig,
	accounts repository.AccountStore,
	tokens *TokenService,
	mailer Mailer,
	logger *slog.Logger,
	opts ...Option,
) *AccountService {
	if config.BcryptCost == 0 {
		config.BcryptCost = DefaultBcryptCost
	}
	if config.Policy == nil {
		config.Policy = DefaultPasswordPolicy()
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &AccountService{
		config:   config,
		accounts: accounts,
		tokens:   tokens,
		guard:    NewLoginGuard(),
		mailer:   mailer,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session is the result of a successful authentication: the account and a
// freshly issued token for it.
type Session struct {
	Account *domain.Account
	Token   string
}

// Signup validates the input, creates a standard account and logs it in.
// A failed welcome mail is logged and does not fail the signup.
func (s *AccountService) Signup(ctx context.Context, in SignupInput, welcomeURL string) (*Session, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := s.config.Policy.ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	hash, err := HashPassword(in.Password, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}

	now := s.now()
	account := &domain.Account{
		ID:           uuid.New(),
		Name:         SanitizeName(in.Name),
		Email:        NormalizeEmail(in.Email),
		Photo:        domain.DefaultPhoto,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, err
		}
		return nil, domain.Unavailable("create account", err)
	}

	if err := s.mailer.SendWelcome(ctx, account, welcomeURL); err != nil {
		s.logger.Error("failed to send welcome email", "error", err, "account_id", account.ID)
	}

	return s.issue(account)
}

// Login checks the lockout state, then the password. Unknown emails and wrong
// passwords fail identically with domain.ErrInvalidCredentials.
func (s *AccountService) Login(ctx context.Context, email, password string) (*Session, error) {
	if email == "" || password == "" {
		return nil, domain.NewValidationError("email", "Please provide email and password!")
	}

	account, err := s.accounts.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, domain.Unavailable("find account", err)
	}

	now := s.now()
	if err := s.guard.Admit(account, now); err != nil {
		return nil, err
	}

	if !VerifyPassword(password, account.PasswordHash) {
		s.guard.RecordFailure(account, now)
		if err := s.save(ctx, account, now); err != nil {
			return nil, err
		}
		if account.IsBlocked {
			s.logger.Warn("account locked after failed logins", "account_id", account.ID, "unblock_time", account.UnblockTime)
		}
		return nil, domain.ErrInvalidCredentials
	}

	s.guard.RecordSuccess(account)
	if err := s.save(ctx, account, now); err != nil {
		return nil, err
	}

	return s.issue(account)
}

// ForgotPassword issues a reset token for the account registered under email
// and mails resetURL(token) to it. Unknown emails succeed silently. If the
// mail cannot be delivered the token is withdrawn before the error is
// returned.
func (s *AccountService) ForgotPassword(ctx context.Context, email string, resetURL func(token string) string) error {
	if email == "" {
		return domain.NewValidationError("email", "Please provide your email")
	}

	account, err := s.accounts.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debug("password reset requested for unknown email")
			return nil
		}
		return domain.Unavailable("find account", err)
	}

	now := s.now()
	plain, hash, expires, err := IssueResetToken(now)
	if err != nil {
		return err
	}

	account.SetResetToken(hash, expires)
	if err := s.save(ctx, account, now); err != nil {
		return err
	}

	if err := s.mailer.SendPasswordReset(ctx, account, resetURL(plain)); err != nil {
		account.ClearResetToken()
		if rbErr := s.save(ctx, account, now); rbErr != nil {
			s.logger.Error("failed to withdraw reset token", "error", rbErr, "account_id", account.ID)
		}
		return domain.Unavailable("send password reset email", err)
	}

	s.logger.Info("password reset email sent", "account_id", account.ID)
	return nil
}

// ResetPassword sets a new password for the holder of an unexpired reset
// token. The token is consumed by the change.
func (s *AccountService) ResetPassword(ctx context.Context, token string, in PasswordInput) (*Session, error) {
	now := s.now()

	account, err := s.accounts.FindByResetToken(ctx, HashToken(token), now)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrResetTokenInvalid
		}
		return nil, domain.Unavailable("find account", err)
	}

	if err := s.setPassword(account, in.Password, in.PasswordConfirm, now); err != nil {
		return nil, err
	}
	account.ClearResetToken()

	if err := s.save(ctx, account, now); err != nil {
		return nil, err
	}

	s.logger.Info("password reset successful", "account_id", account.ID)
	return s.issue(account)
}

// UpdatePassword changes the password of a logged-in account after checking
// its current password.
func (s *AccountService) UpdatePassword(ctx context.Context, account *domain.Account, in UpdatePasswordInput) (*Session, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	if !VerifyPassword(in.PasswordCurrent, account.PasswordHash) {
		return nil, domain.ErrIncorrectPassword
	}

	now := s.now()
	if err := s.setPassword(account, in.Password, in.PasswordConfirm, now); err != nil {
		return nil, err
	}
	if err := s.save(ctx, account, now); err != nil {
		return nil, err
	}

	return s.issue(account)
}

// Get returns an active account by ID.
func (s *AccountService) Get(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, domain.Unavailable("find account", err)
	}
	return account, nil
}

// UpdateMe changes the name and email of a logged-in account and returns the
// stored result. The email is normalized before it is validated, and a taken
// email fails with domain.ErrEmailTaken. account itself is not modified.
func (s *AccountService) UpdateMe(ctx context.Context, account *domain.Account, in UpdateMeInput) (*domain.Account, error) {
	in.Name = SanitizeName(in.Name)
	in.Email = NormalizeEmail(in.Email)
	if in.Name == "" && in.Email == "" {
		return nil, domain.NewValidationError("body", "Please provide a name or email to update")
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	updated := *account
	if in.Name != "" {
		updated.Name = in.Name
	}
	if in.Email != "" {
		updated.Email = in.Email
	}
	updated.UpdatedAt = s.now()

	if err := s.accounts.Save(ctx, &updated); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, err
		}
		return nil, domain.Unavailable("save account", err)
	}
	return &updated, nil
}

// Deactivate soft-deletes the account.
func (s *AccountService) Deactivate(ctx context.Context, account *domain.Account) error {
	account.Active = false
	return s.save(ctx, account, s.now())
}

// setPassword validates and hashes a new password and stamps the change one
// second in the past, so a token issued right after it stays valid.
func (s *AccountService) setPassword(account *domain.Account, password, confirm string, now time.Time) error {
	if err := validateInput(PasswordInput{Password: password, PasswordConfirm: confirm}); err != nil {
		return err
	}
	if err := s.config.Policy.ValidatePassword(password); err != nil {
		return err
	}

	hash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		return err
	}

	changedAt := now.Add(-time.Second)
	account.PasswordHash = hash
	account.PasswordChangedAt = &changedAt
	return nil
}

func (s *AccountService) save(ctx context.Context, account *domain.Account, now time.Time) error {
	account.UpdatedAt = now
	if err := s.accounts.Save(ctx, account); err != nil {
		return domain.Unavailable("save account", err)
	}
	return nil
}

func (s *AccountService) issue(account *domain.Account) (*Session, error) {
	token, err := s.tokens.Issue(account.ID)
	if err != nil {
		return nil, domain.Unavailable("sign token", err)
	}
	return &Session{Account: account, Token: token}, nil
}
