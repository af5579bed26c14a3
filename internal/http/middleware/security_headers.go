package middleware

import (
	"fmt"
	"net/http"

	"github.com/natours/natours/internal/config"
)

type header struct {
	name, value string
}

// securityHeaders lists the non-empty headers of cfg in a fixed order.
func securityHeaders(cfg config.SecurityHeadersConfig) []header {
	var hs []header
	add := func(name, value string) {
		if value != "" {
			hs = append(hs, header{name, value})
		}
	}

	add("Content-Security-Policy", cfg.CSP)
	if cfg.HSTSMaxAge > 0 {
		add("Strict-Transport-Security", fmt.Sprintf("max-age=%d; includeSubDomains", cfg.HSTSMaxAge))
	}
	add("X-Frame-Options", cfg.FrameOptions)
	add("X-Content-Type-Options", cfg.ContentTypeOptions)
	add("X-XSS-Protection", cfg.XSSProtection)
	add("Referrer-Policy", cfg.ReferrerPolicy)
	add("Permissions-Policy", cfg.PermissionsPolicy)
	return hs
}

// SecurityHeaders creates middleware that applies security headers to every
// response. The header set is fixed when the middleware is built.
func SecurityHeaders(cfg config.SecurityHeadersConfig) func(http.Handler) http.Handler {
	hs := securityHeaders(cfg)
	if !cfg.Enabled || len(hs) == 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, h := range hs {
				w.Header().Set(h.name, h.value)
			}
			next.ServeHTTP(w, r)
		})
	}
}
