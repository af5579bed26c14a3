package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/natours/natours/internal/config"
	httpserver "github.com/natours/natours/internal/http"
	"github.com/natours/natours/internal/httputil"
	"github.com/natours/natours/internal/notification"
	"github.com/natours/natours/pkg/auth"
	"github.com/natours/natours/pkg/repository"
)

func main() {
	// Load .env file if present, then the environment
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	// Connect to the account store
	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 15*time.Second)
	store, closeStore, err := repository.Open(connectCtx, repository.Config{
		Driver: cfg.StoreDriver,
		Mongo: repository.MongoConfig{
			URI:      cfg.MongoURI,
			Database: cfg.MongoDatabase,
		},
		Postgres: repository.PostgresConfig{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
		},
	})
	cancelConnect()
	if err != nil {
		logger.Error("failed to connect to account store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	closeAccountStore := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := closeStore(ctx); err != nil {
			logger.Error("failed to close account store", "error", err)
		}
	}

	logger.Info("connected to account store", "driver", cfg.StoreDriver)

	// Initialize email service if configured
	var mailer auth.Mailer
	if cfg.HasSMTP() {
		mailer = notification.NewEmailService(notification.EmailConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			User:     cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			FromName: cfg.SMTP.FromName,
		})
		logger.Info("email service enabled")
	} else {
		mailer = notification.NewLogMailer(logger)
		logger.Warn("SMTP not configured, emails will be logged")
	}

	// Initialize services
	tokens := auth.NewTokenService(auth.TokenConfig{
		Secret: []byte(cfg.JWTSecret),
		Issuer: cfg.JWTIssuer,
		TTL:    cfg.JWTExpiresIn,
	})
	accountService := auth.NewAccountService(auth.AccountConfig{
		BcryptCost: cfg.BcryptCost,
		Policy:     auth.NewPasswordPolicy(cfg.PasswordPolicy),
	}, store, tokens, mailer, logger)
	gate := auth.NewGate(tokens, store)

	cookie := httputil.DefaultCookieConfig()
	cookie.Secure = cfg.IsProduction()
	cookie.TTL = cfg.JWTCookieExpiresIn

	// Create router
	router := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:          logger,
		AccountService:  accountService,
		Gate:            gate,
		AppBaseURL:      cfg.BaseURL,
		ServeUI:         true,
		CORSOrigins:     cfg.CORSAllowedOrigins,
		Cookie:          cookie,
		RateLimitConfig: cfg.RateLimit,
		SecurityHeaders: cfg.SecurityHeaders,
		Validation:      cfg.Validation,
		Ping:            store.Ping,
	})

	// Create HTTP server
	addr := cfg.HTTPAddress()
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("starting server", "addr", addr, "env", cfg.AppEnv)
	if code := serve(logger, server, quit, closeAccountStore); code != 0 {
		os.Exit(code)
	}
}

// serve runs server until a signal arrives on quit or the listener fails,
// then shuts it down and calls release. It returns the process exit code.
func serve(logger *slog.Logger, server *http.Server, quit <-chan os.Signal, release func()) int {
	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	exitCode := 0
	select {
	case <-quit:
	case err := <-serverErr:
		logger.Error("server error", "error", err)
		exitCode = 1
	}

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	release()

	logger.Info("server stopped")
	return exitCode
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
