package auth

import (
	"context"
	"errors"

	"github.com/natours/natours/pkg/domain"
	"github.com/natours/natours/pkg/repository"
)

// Gate resolves the account acting behind a session token.
type Gate struct {
	tokens   *TokenService
	accounts repository.AccountStore
}

// NewGate creates a new authorization gate.
func NewGate(tokens *TokenService, accounts repository.AccountStore) *Gate {
	return &Gate{tokens: tokens, accounts: accounts}
}

// Resolve verifies token and loads the current state of its account.
func (g *Gate) Resolve(ctx context.Context, token string) (*domain.Account, error) {
	if token == "" {
		return nil, domain.ErrNotAuthenticated
	}

	claims, err := g.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	account, err := g.accounts.FindByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, domain.Unavailable("load account", err)
	}

	// A password change revokes every token issued before it.
	if account.ChangedPasswordAfter(claims.IssuedAt) {
		return nil, domain.ErrPasswordChangedSinceIssue
	}

	return account, nil
}

// ResolveOptional behaves like Resolve but swallows every failure, returning
// nil when no valid identity is present.
func (g *Gate) ResolveOptional(ctx context.Context, token string) *domain.Account {
	account, err := g.Resolve(ctx, token)
	if err != nil {
		return nil
	}
	return account
}

// Authorize fails with domain.ErrForbidden unless the account holds one of
// roles. A nil account is not authenticated.
func Authorize(account *domain.Account, roles ...domain.Role) error {
	if account == nil {
		return domain.ErrNotAuthenticated
	}
	if !account.HasRole(roles...) {
		return domain.ErrForbidden
	}
	return nil
}
