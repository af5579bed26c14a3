package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/natours/natours/pkg/domain"
	"github.com/natours/natours/pkg/repository/migrations"
	"github.com/pressly/goose/v3"
)

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns the lib/pq connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// NewDB opens and pings a PostgreSQL connection pool.
func NewDB(ctx context.Context, cfg PostgresConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// PostgresAccountStore stores accounts in the users table.
type PostgresAccountStore struct {
	db *sql.DB
}

// NewPostgresAccountStore creates a new PostgreSQL account store.
func NewPostgresAccountStore(db *sql.DB) *PostgresAccountStore {
	return &PostgresAccountStore{db: db}
}

// Ping checks the database connection.
func (s *PostgresAccountStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const accountColumns = `
	id, name, email, photo, password_hash, role, active,
	password_changed_at, password_reset_token, password_reset_expires,
	login_attempts, is_blocked, unblock_time, created_at, updated_at`

// FindByEmail retrieves an active account by email.
func (s *PostgresAccountStore) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT` + accountColumns + ` FROM users WHERE email = $1 AND active`
	return s.scanOne(s.db.QueryRowContext(ctx, query, email))
}

// FindByID retrieves an active account by ID.
func (s *PostgresAccountStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT` + accountColumns + ` FROM users WHERE id = $1 AND active`
	return s.scanOne(s.db.QueryRowContext(ctx, query, id))
}

// FindByResetToken retrieves the active account holding an unexpired reset token.
func (s *PostgresAccountStore) FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (*domain.Account, error) {
	query := `SELECT` + accountColumns + `
		FROM users
		WHERE password_reset_token = $1 AND password_reset_expires > $2 AND active`
	return s.scanOne(s.db.QueryRowContext(ctx, query, tokenHash, now))
}

// Create inserts a new account.
func (s *PostgresAccountStore) Create(ctx context.Context, a *domain.Account) error {
	query := `INSERT INTO users (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.Name, a.Email, a.Photo, a.PasswordHash, string(a.Role), a.Active,
		a.PasswordChangedAt, a.PasswordResetToken, a.PasswordResetExpires,
		a.LoginAttempts, a.IsBlocked, a.UnblockTime, a.CreatedAt, a.UpdatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return domain.ErrEmailTaken
	}
	return err
}

// Save updates every mutable column of the account.
func (s *PostgresAccountStore) Save(ctx context.Context, a *domain.Account) error {
	query := `
		UPDATE users
		SET name = $2, email = $3, photo = $4, password_hash = $5, role = $6, active = $7,
		    password_changed_at = $8, password_reset_token = $9, password_reset_expires = $10,
		    login_attempts = $11, is_blocked = $12, unblock_time = $13, updated_at = $14
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		a.ID, a.Name, a.Email, a.Photo, a.PasswordHash, string(a.Role), a.Active,
		a.PasswordChangedAt, a.PasswordResetToken, a.PasswordResetExpires,
		a.LoginAttempts, a.IsBlocked, a.UnblockTime, a.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return domain.ErrEmailTaken
		}
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *PostgresAccountStore) scanOne(row *sql.Row) (*domain.Account, error) {
	a := &domain.Account{}
	var role string
	err := row.Scan(
		&a.ID, &a.Name, &a.Email, &a.Photo, &a.PasswordHash, &role, &a.Active,
		&a.PasswordChangedAt, &a.PasswordResetToken, &a.PasswordResetExpires,
		&a.LoginAttempts, &a.IsBlocked, &a.UnblockTime, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Role = domain.Role(role)
	return a, nil
}
