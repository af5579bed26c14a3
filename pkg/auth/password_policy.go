package auth

import (
	"fmt"
	"unicode"

	"github.com/natours/natours/internal/config"
	"github.com/natours/natours/pkg/domain"
)

// PasswordPolicy defines password complexity requirements.
type PasswordPolicy struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumber    bool
	RequireSpecial   bool
}

// DefaultPasswordPolicy requires eight characters and nothing else.
func DefaultPasswordPolicy() *PasswordPolicy {
	return &PasswordPolicy{MinLength: 8}
}

// NewPasswordPolicy creates a PasswordPolicy from config.
func NewPasswordPolicy(cfg config.PasswordPolicyConfig) *PasswordPolicy {
	return &PasswordPolicy{
		MinLength:        cfg.MinLength,
		RequireUppercase: cfg.RequireUppercase,
		RequireLowercase: cfg.RequireLowercase,
		RequireNumber:    cfg.RequireNumber,
		RequireSpecial:   cfg.RequireSpecial,
	}
}

// ValidatePassword checks if a password meets the policy requirements.
// Violations are reported as a *domain.ValidationError on the password field.
func (p *PasswordPolicy) ValidatePassword(password string) error {
	var msg string
	switch {
	case p.MinLength > 0 && len(password) < p.MinLength:
		msg = fmt.Sprintf("A password must be at least %d characters long", p.MinLength)
	case p.RequireUppercase && !containsUppercase(password):
		msg = "password must contain at least one uppercase letter"
	case p.RequireLowercase && !containsLowercase(password):
		msg = "password must contain at least one lowercase letter"
	case p.RequireNumber && !containsNumber(password):
		msg = "password must contain at least one number"
	case p.RequireSpecial && !containsSpecial(password):
		msg = "password must contain at least one special character"
	default:
		return nil
	}
	return domain.NewValidationError("password", msg)
}

func containsUppercase(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

func containsLowercase(s string) bool {
	for _, r := range s {
		if unicode.IsLower(r) {
			return true
		}
	}
	return false
}

func containsNumber(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func containsSpecial(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			return true
		}
	}
	return false
}
