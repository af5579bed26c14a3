package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/natours/natours/pkg/domain"
)

// DefaultTokenTTL is the session token lifetime used when none is configured.
const DefaultTokenTTL = 90 * 24 * time.Hour

// TokenConfig holds session token configuration.
type TokenConfig struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

// TokenService issues and verifies stateless session tokens.
type TokenService struct {
	config TokenConfig
	now    func() time.Time
}

// NewTokenService creates a new token service.
func NewTokenService(config TokenConfig) *TokenService {
	if config.TTL == 0 {
		config.TTL = DefaultTokenTTL
	}
	return &TokenService{config: config, now: time.Now}
}

// TTL returns the session token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.config.TTL
}

// Claims is the verified content of a session token.
type Claims struct {
	AccountID uuid.UUID
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Issue signs a token for accountID valid for the configured TTL.
func (s *TokenService) Issue(accountID uuid.UUID) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   accountID.String(),
		Issuer:    s.config.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.config.Secret)
}

// Verify checks the token signature and expiry. It fails with
// domain.ErrExpiredToken or domain.ErrInvalidToken.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}

	var rc jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &rc, func(*jwt.Token) (interface{}, error) {
		return s.config.Secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrExpiredToken
		}
		return nil, domain.ErrInvalidToken
	}
	if !token.Valid || rc.IssuedAt == nil {
		return nil, domain.ErrInvalidToken
	}

	accountID, err := uuid.Parse(rc.Subject)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	return &Claims{
		AccountID: accountID,
		IssuedAt:  rc.IssuedAt.Time,
		ExpiresAt: rc.ExpiresAt.Time,
	}, nil
}
