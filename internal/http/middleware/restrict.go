package middleware

import (
	"log/slog"
	"net/http"

	"github.com/natours/natours/internal/httputil"
	"github.com/natours/natours/pkg/auth"
	"github.com/natours/natours/pkg/domain"
)

// RestrictTo lets only accounts holding one of roles through.
// Must be used after Auth middleware.
//
//	r.With(middleware.RestrictTo(logger, domain.RoleAdmin, domain.RoleLeadGuide)).
//	  Get("/{id}", h.GetUser)
func RestrictTo(logger *slog.Logger, roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account, _ := GetAccount(r.Context())
			if err := auth.Authorize(account, roles...); err != nil {
				if logger != nil && account != nil {
					logger.Warn("access denied", "account_id", account.ID, "role", account.Role, "path", r.URL.Path)
				}
				httputil.WriteError(w, logger, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
