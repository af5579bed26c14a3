package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/natours/natours/internal/config"
	"github.com/natours/natours/internal/httputil"
)

// RateLimitConfig holds rate limiting configuration for a specific endpoint type.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Message  string
	Logger   *slog.Logger
}

// RateLimit creates an IP-based rate limiter middleware with logging.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	message := cfg.Message
	if message == "" {
		message = "Too many requests from this IP, please try again later!"
	}
	return httprate.Limit(
		cfg.Requests,
		cfg.Window,
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Logger != nil {
				cfg.Logger.Warn("rate limit exceeded",
					"ip", r.RemoteAddr,
					"path", r.URL.Path,
					"method", r.Method,
					"user_agent", r.UserAgent(),
				)
			}
			httputil.Error(w, http.StatusTooManyRequests, message)
		}),
	)
}

// NoRateLimit returns a no-op middleware when rate limiting is disabled.
func NoRateLimit() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return next
	}
}

// Limiter names returned by CreateRateLimiters.
const (
	LimiterAPI   = "api"
	LimiterAuth  = "auth"
	LimiterReset = "reset"
)

// CreateRateLimiters creates rate limiting middleware functions based on configuration.
func CreateRateLimiters(cfg config.RateLimitConfig, logger *slog.Logger) map[string]func(http.Handler) http.Handler {
	if !cfg.Enabled {
		noOp := NoRateLimit()
		return map[string]func(http.Handler) http.Handler{
			LimiterAPI:   noOp,
			LimiterAuth:  noOp,
			LimiterReset: noOp,
		}
	}

	return map[string]func(http.Handler) http.Handler{
		LimiterAPI: RateLimit(RateLimitConfig{
			Requests: cfg.APIRequests,
			Window:   cfg.APIWindow,
			Message:  "Too many requests from this IP, please try again in an hour!",
			Logger:   logger,
		}),
		LimiterAuth: RateLimit(RateLimitConfig{
			Requests: cfg.AuthRequests,
			Window:   cfg.AuthWindow,
			Logger:   logger,
		}),
		LimiterReset: RateLimit(RateLimitConfig{
			Requests: cfg.ResetRequests,
			Window:   cfg.ResetWindow,
			Logger:   logger,
		}),
	}
}
