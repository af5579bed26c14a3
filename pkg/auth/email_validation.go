package auth

import (
	"strings"
)

// NormalizeEmail normalizes an email address by lowercasing and trimming.
// Accounts are stored and looked up by the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
