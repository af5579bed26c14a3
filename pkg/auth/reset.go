package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

const (
	resetTokenLen = 32

	// ResetTokenTTL is how long a password reset token stays usable.
	ResetTokenTTL = 10 * time.Minute
)

// GenerateToken returns n random bytes, hex encoded.
func GenerateToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashToken returns the sha256 hex digest of a token. The digest is
// deterministic so it can be stored and queried.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// IssueResetToken creates a password reset token. Only hash is meant to be
// persisted; plain goes to the account holder once.
func IssueResetToken(now time.Time) (plain, hash string, expires time.Time, err error) {
	plain, err = GenerateToken(resetTokenLen)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return plain, HashToken(plain), now.Add(ResetTokenTTL), nil
}
