package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/natours/natours/pkg/domain"
)

// MemoryAccountStore keeps accounts in process memory. It is used for local
// development and tests.
type MemoryAccountStore struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]domain.Account
}

// NewMemoryAccountStore creates an empty in-memory store.
func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{accounts: make(map[uuid.UUID]domain.Account)}
}

// FindByEmail retrieves an active account by email.
func (s *MemoryAccountStore) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	return s.find(func(a *domain.Account) bool { return a.Email == email })
}

// FindByID retrieves an active account by ID.
func (s *MemoryAccountStore) FindByID(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	return s.find(func(a *domain.Account) bool { return a.ID == id })
}

// FindByResetToken retrieves the active account holding an unexpired reset token.
func (s *MemoryAccountStore) FindByResetToken(_ context.Context, tokenHash string, now time.Time) (*domain.Account, error) {
	return s.find(func(a *domain.Account) bool {
		return a.PasswordResetToken != nil && *a.PasswordResetToken == tokenHash &&
			a.PasswordResetExpires != nil && a.PasswordResetExpires.After(now)
	})
}

// Create inserts a new account.
func (s *MemoryAccountStore) Create(_ context.Context, a *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if existing.Email == a.Email {
			return domain.ErrEmailTaken
		}
	}
	s.accounts[a.ID] = clone(a)
	return nil
}

// Save overwrites the stored account.
func (s *MemoryAccountStore) Save(_ context.Context, a *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[a.ID]; !ok {
		return domain.ErrNotFound
	}
	for id, existing := range s.accounts {
		if id != a.ID && existing.Email == a.Email {
			return domain.ErrEmailTaken
		}
	}
	s.accounts[a.ID] = clone(a)
	return nil
}

// Ping always succeeds.
func (s *MemoryAccountStore) Ping(context.Context) error { return nil }

// Len returns the number of stored accounts, active or not.
func (s *MemoryAccountStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

func (s *MemoryAccountStore) find(match func(*domain.Account) bool) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if a.Active && match(&a) {
			c := clone(&a)
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

// clone copies an account so callers never share pointer fields with the store.
func clone(a *domain.Account) domain.Account {
	c := *a
	if a.PasswordChangedAt != nil {
		t := *a.PasswordChangedAt
		c.PasswordChangedAt = &t
	}
	if a.PasswordResetToken != nil {
		s := *a.PasswordResetToken
		c.PasswordResetToken = &s
	}
	if a.PasswordResetExpires != nil {
		t := *a.PasswordResetExpires
		c.PasswordResetExpires = &t
	}
	if a.UnblockTime != nil {
		t := *a.UnblockTime
		c.UnblockTime = &t
	}
	return c
}
