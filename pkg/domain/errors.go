package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Authentication errors
var (
	ErrNotAuthenticated          = errors.New("not authenticated")
	ErrInvalidCredentials        = errors.New("invalid credentials")
	ErrIncorrectPassword         = errors.New("current password is incorrect")
	ErrInvalidToken              = errors.New("invalid token")
	ErrExpiredToken              = errors.New("token expired")
	ErrAccountNotFound           = errors.New("account belonging to this token no longer exists")
	ErrPasswordChangedSinceIssue = errors.New("password changed after token was issued")
	ErrResetTokenInvalid         = errors.New("reset token is invalid or has expired")
)

// Authorization and lookup errors
var (
	ErrForbidden = errors.New("forbidden")
	ErrNotFound  = errors.New("not found")
)

// Store errors
var (
	ErrEmailTaken            = errors.New("email already in use")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

// ValidationError reports malformed or missing input. Fields maps the input
// field name to a human readable message.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError creates a validation error for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, m := range e.Fields {
		msgs = append(msgs, m)
	}
	sort.Strings(msgs)
	return "Invalid input data. " + strings.Join(msgs, ". ")
}

// AccountLockedError is returned when a login is attempted on a blocked
// account. Remaining is the time left until the lockout window ends.
type AccountLockedError struct {
	Remaining time.Duration
}

func (e *AccountLockedError) Error() string {
	mins := int(e.Remaining / time.Minute)
	secs := int((e.Remaining % time.Minute) / time.Second)
	return fmt.Sprintf("Too many incorrect login attempts. Please wait for %d minutes %d seconds before trying again", mins, secs)
}

// DependencyError wraps a failure of the account store, the mailer or the
// token signer. It matches ErrDependencyUnavailable with errors.Is.
type DependencyError struct {
	Op  string
	Err error
}

// Unavailable wraps err as a DependencyError. A nil err yields nil.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return &DependencyError{Op: op, Err: err}
}

func (e *DependencyError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *DependencyError) Unwrap() []error {
	return []error{ErrDependencyUnavailable, e.Err}
}
