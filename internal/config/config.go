package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration.
type Config struct {
	// Server
	AppEnv     string `envconfig:"APP_ENV" default:"development"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`
	ServerAddr string `envconfig:"SERVER_ADDR" default:"0.0.0.0"`
	ServerPort int    `envconfig:"SERVER_PORT" default:"8080"`
	BaseURL    string `envconfig:"APP_BASE_URL" default:"http://localhost:8080"`

	// Account store: mongo, postgres or memory
	StoreDriver   string `envconfig:"STORE_DRIVER" default:"mongo"`
	MongoURI      string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDatabase string `envconfig:"MONGO_DATABASE" default:"natours"`

	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     int    `envconfig:"DB_PORT" default:"25432"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD" default:"postgres"`
	DBName     string `envconfig:"DB_NAME" default:"natours"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	// JWT
	JWTSecret          string        `envconfig:"JWT_SECRET"`
	JWTIssuer          string        `envconfig:"JWT_ISSUER" default:"natours"`
	JWTExpiresIn       time.Duration `envconfig:"JWT_EXPIRES_IN" default:"2160h"`
	JWTCookieExpiresIn time.Duration `envconfig:"JWT_COOKIE_EXPIRES_IN" default:"2160h"`

	BcryptCost int `envconfig:"BCRYPT_COST" default:"12"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`

	// Nested groups are read with their prefix, e.g. SMTP_HOST or RATE_LIMIT_ENABLED.
	SMTP            SMTPConfig            `envconfig:"SMTP"`
	PasswordPolicy  PasswordPolicyConfig  `envconfig:"PASSWORD"`
	RateLimit       RateLimitConfig       `envconfig:"RATE_LIMIT"`
	SecurityHeaders SecurityHeadersConfig `envconfig:"SECURITY_HEADERS"`
	Validation      ValidationConfig      `envconfig:"VALIDATION"`
}

// SMTPConfig holds outgoing mail settings. Mail is logged instead of sent
// while Host is empty.
type SMTPConfig struct {
	Host     string `split_words:"true"`
	Port     int    `split_words:"true" default:"587"`
	User     string `split_words:"true"`
	Password string `split_words:"true"`
	From     string `split_words:"true" default:"hello@natours.io"`
	FromName string `split_words:"true" default:"Natours"`
}

// PasswordPolicyConfig holds password complexity requirements.
type PasswordPolicyConfig struct {
	MinLength        int  `split_words:"true" default:"8"`
	RequireUppercase bool `split_words:"true" default:"false"`
	RequireLowercase bool `split_words:"true" default:"false"`
	RequireNumber    bool `split_words:"true" default:"false"`
	RequireSpecial   bool `split_words:"true" default:"false"`
}

// RateLimitConfig holds per-IP request limits.
type RateLimitConfig struct {
	Enabled bool `split_words:"true" default:"true"`

	// All of /api
	APIRequests int           `split_words:"true" default:"100"`
	APIWindow   time.Duration `split_words:"true" default:"1h"`

	// signup and login
	AuthRequests int           `split_words:"true" default:"10"`
	AuthWindow   time.Duration `split_words:"true" default:"1m"`

	// forgotPassword and resetPassword
	ResetRequests int           `split_words:"true" default:"3"`
	ResetWindow   time.Duration `split_words:"true" default:"1h"`
}

// SecurityHeadersConfig holds the HTTP security headers applied to every response.
type SecurityHeadersConfig struct {
	Enabled            bool   `split_words:"true" default:"true"`
	CSP                string `split_words:"true" default:"default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:"`
	HSTSMaxAge         int    `split_words:"true" default:"31536000"`
	FrameOptions       string `split_words:"true" default:"DENY"`
	ContentTypeOptions string `split_words:"true" default:"nosniff"`
	XSSProtection      string `split_words:"true" default:"1; mode=block"`
	ReferrerPolicy     string `split_words:"true" default:"strict-origin-when-cross-origin"`
	PermissionsPolicy  string `split_words:"true" default:"geolocation=(), microphone=(), camera=()"`
}

// ValidationConfig holds request input limits.
type ValidationConfig struct {
	MaxRequestBodySize int64 `split_words:"true" default:"10240"`
}

// Load reads an optional .env file, then configuration from environment
// variables. Variables already set in the environment win over .env.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && len(envFiles) > 0 {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	return FromEnv()
}

// FromEnv reads configuration from environment variables only.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if len(cfg.JWTSecret) < 32 && cfg.IsProduction() {
		return nil, errors.New("JWT_SECRET must be at least 32 characters in production")
	}
	switch cfg.StoreDriver {
	case "mongo", "postgres", "memory":
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	if cfg.JWTExpiresIn <= 0 {
		return nil, errors.New("JWT_EXPIRES_IN must be positive")
	}

	return &cfg, nil
}

// IsProduction reports whether the app runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// HasSMTP returns true if outgoing mail is configured.
func (c *Config) HasSMTP() bool {
	return c.SMTP.Host != ""
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c *Config) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.ServerAddr, c.ServerPort)
}
