package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleUser      Role = "user"
	RoleGuide     Role = "guide"
	RoleLeadGuide Role = "lead-guide"
	RoleAdmin     Role = "admin"
)

// DefaultPhoto is assigned to accounts created without a photo.
const DefaultPhoto = "default.jpg"

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin:
		return true
	}
	return false
}

// Account represents a registered user.
type Account struct {
	ID           uuid.UUID
	Name         string
	Email        string
	Photo        string
	PasswordHash string `json:"-"`
	Role         Role
	Active       bool

	PasswordChangedAt    *time.Time
	PasswordResetToken   *string
	PasswordResetExpires *time.Time

	LoginAttempts int
	IsBlocked     bool
	UnblockTime   *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ChangedPasswordAfter reports whether the password was changed after a token
// issued at issuedAt. Token timestamps carry second precision, so the
// comparison is done in whole seconds.
func (a *Account) ChangedPasswordAfter(issuedAt time.Time) bool {
	if a.PasswordChangedAt == nil {
		return false
	}
	return issuedAt.Unix() < a.PasswordChangedAt.Unix()
}

// SetResetToken stores the hashed reset token and its expiry.
func (a *Account) SetResetToken(hash string, expires time.Time) {
	a.PasswordResetToken = &hash
	a.PasswordResetExpires = &expires
}

// ClearResetToken removes any pending reset token.
func (a *Account) ClearResetToken() {
	a.PasswordResetToken = nil
	a.PasswordResetExpires = nil
}

// HasRole reports whether the account's role is one of roles.
func (a *Account) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

// PublicAccount is the read view of an account. It never carries credential
// or lockout fields.
type PublicAccount struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Photo string `json:"photo"`
	Role  Role   `json:"role"`
}

// Public returns the read view of the account.
func (a *Account) Public() PublicAccount {
	return PublicAccount{
		ID:    a.ID.String(),
		Name:  a.Name,
		Email: a.Email,
		Photo: a.Photo,
		Role:  a.Role,
	}
}
