package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/natours/natours/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAccount(email string) *domain.Account {
	now := time.Now()
	return &domain.Account{
		ID:           uuid.New(),
		Name:         "Test",
		Email:        email,
		Photo:        domain.DefaultPhoto,
		PasswordHash: "hash",
		Role:         domain.RoleUser,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestMemoryAccountStore_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryAccountStore()
	a := newAccount("a@example.com")

	require.NoError(t, s.Create(ctx, a))

	got, err := s.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	got, err = s.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", got.Email)

	_, err = s.FindByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryAccountStore_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryAccountStore()

	require.NoError(t, s.Create(ctx, newAccount("dup@example.com")))
	err := s.Create(ctx, newAccount("dup@example.com"))
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryAccountStore_InactiveHidden(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryAccountStore()
	a := newAccount("gone@example.com")
	require.NoError(t, s.Create(ctx, a))

	a.Active = false
	require.NoError(t, s.Save(ctx, a))

	_, err := s.FindByEmail(ctx, a.Email)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.FindByID(ctx, a.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryAccountStore_FindByResetToken(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryAccountStore()
	now := time.Now()
	a := newAccount("reset@example.com")
	a.SetResetToken("deadbeef", now.Add(10*time.Minute))
	require.NoError(t, s.Create(ctx, a))

	got, err := s.FindByResetToken(ctx, "deadbeef", now.Add(9*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = s.FindByResetToken(ctx, "deadbeef", now.Add(10*time.Minute))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.FindByResetToken(ctx, "other", now)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryAccountStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryAccountStore()
	a := newAccount("copy@example.com")
	require.NoError(t, s.Create(ctx, a))

	got, err := s.FindByID(ctx, a.ID)
	require.NoError(t, err)
	got.LoginAttempts = 2

	again, err := s.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, again.LoginAttempts)
}

func TestMemoryAccountStore_SaveUnknown(t *testing.T) {
	s := NewMemoryAccountStore()
	err := s.Save(context.Background(), newAccount("x@example.com"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAccountDocument_RoundTrip(t *testing.T) {
	a := newAccount("doc@example.com")
	until := time.Now().Add(10 * time.Minute)
	a.IsBlocked = true
	a.UnblockTime = &until
	a.LoginAttempts = 3
	a.Role = domain.RoleLeadGuide

	doc := toDocument(a)
	assert.Equal(t, a.ID.String(), doc.ID)
	assert.Equal(t, "hash", doc.Password)

	back, err := doc.toAccount()
	require.NoError(t, err)
	assert.Equal(t, a, back)
}

func TestAccountDocument_BadID(t *testing.T) {
	_, err := accountDocument{ID: "not-a-uuid"}.toAccount()
	assert.Error(t, err)
}

func TestPostgresConfig_DSN(t *testing.T) {
	cfg := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "natours", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=natours sslmode=disable", cfg.DSN())
}

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()

	store, closeFn, err := Open(ctx, Config{Driver: DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryAccountStore{}, store)
	assert.NoError(t, closeFn(ctx))

	_, _, err = Open(ctx, Config{Driver: "cassandra"})
	assert.Error(t, err)
}
