// Package accounts embeds the account-security API (signup, login, password
// reset and role checks) into another application.
//
// Basic usage:
//
//	client, _ := mongo.Connect(options.Client().ApplyURI("mongodb://localhost:27017"))
//	store := repository.NewMongoAccountStore(client.Database("natours"))
//
//	acc, err := accounts.New(accounts.Config{
//	    Store:     store,
//	    JWTSecret: "your-secret-key-at-least-32-chars",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	r := chi.NewRouter()
//	r.Mount("/api/v1/users", acc.Router())
//	r.With(acc.Protect(), acc.RestrictTo(domain.RoleAdmin)).Delete("/tours/{id}", deleteTour)
package accounts

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/natours/natours/internal/http/features/users"
	"github.com/natours/natours/internal/http/middleware"
	"github.com/natours/natours/internal/httputil"
	"github.com/natours/natours/internal/notification"
	"github.com/natours/natours/pkg/auth"
	"github.com/natours/natours/pkg/domain"
	"github.com/natours/natours/pkg/repository"
)

// Config holds the configuration for the embedded account API.
type Config struct {
	// Store persists accounts (required).
	Store repository.AccountStore

	// JWTSecret is the secret key for signing tokens (required, min 32 chars).
	JWTSecret string

	// JWTIssuer is the issuer claim in tokens (default: "natours").
	JWTIssuer string

	// TokenTTL is the lifetime of session tokens and the jwt cookie
	// (default: 90 days).
	TokenTTL time.Duration

	// BaseURL is used to build links in outgoing mail.
	BaseURL string

	// Mailer delivers welcome and reset mail (default: log only).
	Mailer auth.Mailer

	// SecureCookie sets the Secure flag on the jwt cookie.
	SecureCookie bool

	// Logger is the structured logger (default: JSON to stdout).
	Logger *slog.Logger
}

// Accounts is an embedded account API instance.
type Accounts struct {
	config   Config
	service  *auth.AccountService
	gate     *auth.Gate
	handler  *users.Handler
	protect  func(http.Handler) http.Handler
	noLimits func(http.Handler) http.Handler
}

// New creates an account API over cfg.Store.
func New(cfg Config) (*Accounts, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	tokens := auth.NewTokenService(auth.TokenConfig{
		Secret: []byte(cfg.JWTSecret),
		Issuer: cfg.JWTIssuer,
		TTL:    cfg.TokenTTL,
	})
	service := auth.NewAccountService(auth.AccountConfig{}, cfg.Store, tokens, cfg.Mailer, cfg.Logger)
	gate := auth.NewGate(tokens, cfg.Store)

	cookie := httputil.DefaultCookieConfig()
	cookie.Secure = cfg.SecureCookie
	cookie.TTL = cfg.TokenTTL

	return &Accounts{
		config:   cfg,
		service:  service,
		gate:     gate,
		handler:  users.NewHandler(cfg.Logger, service, cookie, cfg.BaseURL),
		protect:  middleware.Auth(gate, cfg.Logger),
		noLimits: middleware.NoRateLimit(),
	}, nil
}

// Router returns a chi router with all account routes.
// Mount this on your main router:
//
//	r.Mount("/api/v1/users", acc.Router())
//
// Routes:
//
//	POST   /signup                  - Create an account
//	POST   /login                   - Login with email/password
//	GET    /logout                  - Clear the session cookie
//	POST   /forgotPassword          - Mail a reset link
//	PATCH  /resetPassword/{token}   - Set a new password with a reset token
//	PATCH  /updateMyPassword        - Change password (protected)
//	GET    /me                      - Current account (protected)
//	DELETE /deleteMe                - Deactivate account (protected)
//	GET    /{id}                    - Any account (admin, lead-guide)
//
// Rate limits are left to the host application.
func (a *Accounts) Router() chi.Router {
	r := a.handler.Routes(users.Middlewares{
		Auth:       a.protect,
		StaffOnly:  a.RestrictTo(domain.RoleAdmin, domain.RoleLeadGuide),
		AuthLimit:  a.noLimits,
		ResetLimit: a.noLimits,
	})
	return r
}

// Service returns the account service for advanced usage.
func (a *Accounts) Service() *auth.AccountService {
	return a.service
}

// Protect returns middleware that requires a valid session token.
// Use this to protect your own routes:
//
//	r.Group(func(r chi.Router) {
//	    r.Use(acc.Protect())
//	    r.Get("/my-bookings", handler)
//	})
func (a *Accounts) Protect() func(http.Handler) http.Handler {
	return a.protect
}

// RestrictTo returns middleware allowing only the given roles. Use after
// Protect.
func (a *Accounts) RestrictTo(roles ...domain.Role) func(http.Handler) http.Handler {
	return middleware.RestrictTo(a.config.Logger, roles...)
}

// OptionalAuth returns middleware that attaches the visitor's account when
// the request carries a valid token, for rendered pages.
func (a *Accounts) OptionalAuth() func(http.Handler) http.Handler {
	return middleware.OptionalAuth(a.gate)
}

// CurrentAccount returns the account attached by Protect or OptionalAuth.
//
//	account, ok := accounts.CurrentAccount(r.Context())
func CurrentAccount(ctx context.Context) (*domain.PublicAccount, bool) {
	account, ok := middleware.GetAccount(ctx)
	if !ok {
		return nil, false
	}
	p := account.Public()
	return &p, true
}

func validateConfig(cfg *Config) error {
	if cfg.Store == nil {
		return errors.New("accounts: Store is required")
	}
	if cfg.JWTSecret == "" {
		return errors.New("accounts: JWTSecret is required")
	}
	if len(cfg.JWTSecret) < 32 {
		return errors.New("accounts: JWTSecret must be at least 32 characters")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.JWTIssuer == "" {
		cfg.JWTIssuer = "natours"
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = auth.DefaultTokenTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	if cfg.Mailer == nil {
		cfg.Mailer = notification.NewLogMailer(cfg.Logger)
	}
}
