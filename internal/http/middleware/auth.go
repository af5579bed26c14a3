package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/natours/natours/internal/httputil"
	"github.com/natours/natours/pkg/auth"
	"github.com/natours/natours/pkg/domain"
)

type contextKey string

// AccountKey is the context key for the authenticated account.
const AccountKey contextKey = "account"

// Auth creates middleware that requires a valid session token.
// Checks Authorization header first, then falls back to the jwt cookie.
func Auth(gate *auth.Gate, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account, err := gate.Resolve(r.Context(), httputil.RequestToken(r))
			if err != nil {
				httputil.WriteError(w, logger, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), account)))
		})
	}
}

// OptionalAuth attaches the account behind the request token when there is a
// valid one, resolving it the same way as Auth. It never rejects a request.
// Used by rendered pages.
func OptionalAuth(gate *auth.Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if account := gate.ResolveOptional(r.Context(), httputil.RequestToken(r)); account != nil {
				r = r.WithContext(WithAccount(r.Context(), account))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithAccount returns a copy of ctx carrying account.
func WithAccount(ctx context.Context, account *domain.Account) context.Context {
	return context.WithValue(ctx, AccountKey, account)
}

// GetAccount extracts the authenticated account from the request context.
func GetAccount(ctx context.Context) (*domain.Account, bool) {
	account, ok := ctx.Value(AccountKey).(*domain.Account)
	return account, ok && account != nil
}
