package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/natours/natours/internal/config"
	"github.com/natours/natours/internal/http/features/pages"
	"github.com/natours/natours/internal/http/features/users"
	"github.com/natours/natours/internal/http/middleware"
	"github.com/natours/natours/internal/httputil"
	"github.com/natours/natours/pkg/auth"
	"github.com/natours/natours/pkg/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger          *slog.Logger
	AccountService  *auth.AccountService
	Gate            *auth.Gate
	AppBaseURL      string
	ServeUI         bool
	CORSOrigins     []string
	Cookie          httputil.CookieConfig
	RateLimitConfig config.RateLimitConfig
	SecurityHeaders config.SecurityHeadersConfig
	Validation      config.ValidationConfig
	// Ping reports whether the account store is reachable. Optional.
	Ping func(ctx context.Context) error
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.Metrics)
	r.Use(middleware.SecurityHeaders(cfg.SecurityHeaders))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: !allowsAnyOrigin(cfg.CORSOrigins),
		MaxAge:           300,
	}))
	r.Use(middleware.RequestSizeLimit(cfg.Validation.MaxRequestBodySize))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if cfg.Ping != nil {
			if err := cfg.Ping(req.Context()); err != nil {
				cfg.Logger.Warn("health check failed", "error", err)
				httputil.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	// Create rate limiters for different endpoint types
	rateLimiters := middleware.CreateRateLimiters(cfg.RateLimitConfig, cfg.Logger)

	usersHandler := users.NewHandler(cfg.Logger, cfg.AccountService, cfg.Cookie, cfg.AppBaseURL)
	r.Route("/api", func(r chi.Router) {
		r.Use(rateLimiters[middleware.LimiterAPI])
		r.Mount("/v1/users", usersHandler.Routes(users.Middlewares{
			Auth:       middleware.Auth(cfg.Gate, cfg.Logger),
			StaffOnly:  middleware.RestrictTo(cfg.Logger, domain.RoleAdmin, domain.RoleLeadGuide),
			AuthLimit:  rateLimiters[middleware.LimiterAuth],
			ResetLimit: rateLimiters[middleware.LimiterReset],
		}))
	})

	// Server-rendered pages (if UI is enabled)
	if cfg.ServeUI {
		pagesHandler, err := pages.NewHandler(cfg.Logger, cfg.AccountService, cfg.Cookie, cfg.AppBaseURL)
		if err != nil {
			cfg.Logger.Error("failed to load page templates", "error", err)
		} else {
			pagesHandler.RegisterRoutes(r, pages.Middlewares{
				OptionalAuth: middleware.OptionalAuth(cfg.Gate),
				AuthLimit:    rateLimiters[middleware.LimiterAuth],
			})
		}
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httputil.Error(w, http.StatusNotFound, "Can't find "+req.URL.Path+" on this server!")
	})

	return r
}

func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return len(origins) == 0
}
