package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/natours/natours/pkg/domain"
)

// AccountStore persists accounts. Lookups never return inactive accounts and
// report domain.ErrNotFound when nothing matches. Each call is a single
// atomic operation on one account document.
type AccountStore interface {
	// FindByEmail looks an account up by its normalized email.
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	// FindByID looks an account up by ID.
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	// FindByResetToken returns the account holding tokenHash whose reset
	// window is still open at now.
	FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (*domain.Account, error)
	// Create inserts a new account, failing with domain.ErrEmailTaken when
	// the email is already registered.
	Create(ctx context.Context, account *domain.Account) error
	// Save overwrites the stored account with the given state.
	Save(ctx context.Context, account *domain.Account) error
	// Ping reports whether the backing database is reachable.
	Ping(ctx context.Context) error
}

// Driver names accepted by Open.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)
