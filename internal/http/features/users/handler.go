package users

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/natours/natours/internal/http/middleware"
	"github.com/natours/natours/internal/httputil"
	"github.com/natours/natours/pkg/auth"
	"github.com/natours/natours/pkg/domain"
)

// Handler handles the /api/v1/users endpoints.
type Handler struct {
	logger       *slog.Logger
	accounts     *auth.AccountService
	cookieConfig httputil.CookieConfig
	baseURL      string
	now          func() time.Time
}

// NewHandler creates a new users handler.
func NewHandler(logger *slog.Logger, accounts *auth.AccountService, cookieConfig httputil.CookieConfig, baseURL string) *Handler {
	return &Handler{
		logger:       logger,
		accounts:     accounts,
		cookieConfig: cookieConfig,
		baseURL:      strings.TrimRight(baseURL, "/"),
		now:          time.Now,
	}
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ForgotPasswordRequest represents a password reset request.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// Signup creates an account and logs it in.
// POST /api/v1/users/signup
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req auth.SignupInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	session, err := h.accounts.Signup(r.Context(), req, h.baseURL+"/me")
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	signupsTotal.Inc()
	h.logger.Info("account created", "account_id", session.Account.ID)
	h.sendToken(w, http.StatusCreated, session)
}

// Login authenticates with email and password.
// POST /api/v1/users/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	session, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	loginAttemptsTotal.WithLabelValues(loginOutcome(err)).Inc()
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	h.sendToken(w, http.StatusOK, session)
}

// Logout replaces the session cookie with an expired placeholder. The token
// itself stays valid until it expires.
// GET|POST /api/v1/users/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	httputil.ClearSessionCookie(w, h.now(), h.cookieConfig)
	httputil.Success(w, http.StatusOK, nil)
}

// ForgotPassword mails a reset link. The response does not reveal whether
// the email is registered.
// POST /api/v1/users/forgotPassword
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	err := h.accounts.ForgotPassword(r.Context(), req.Email, h.resetURL)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	httputil.Success(w, http.StatusOK, map[string]any{
		"message": "If that email is registered, a reset link has been sent to it",
	})
}

// ResetPassword sets a new password using a mailed reset token.
// PATCH /api/v1/users/resetPassword/{token}
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req auth.PasswordInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	session, err := h.accounts.ResetPassword(r.Context(), chi.URLParam(r, "token"), req)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	passwordChangesTotal.WithLabelValues("reset").Inc()
	h.sendToken(w, http.StatusOK, session)
}

// UpdateMyPassword changes the password of the logged-in account.
// PATCH /api/v1/users/updateMyPassword
func (h *Handler) UpdateMyPassword(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.GetAccount(r.Context())
	if !ok {
		httputil.WriteError(w, h.logger, domain.ErrNotAuthenticated)
		return
	}

	var req auth.UpdatePasswordInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	session, err := h.accounts.UpdatePassword(r.Context(), account, req)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	passwordChangesTotal.WithLabelValues("update").Inc()
	h.sendToken(w, http.StatusOK, session)
}

// GetMe returns the logged-in account.
// GET /api/v1/users/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.GetAccount(r.Context())
	if !ok {
		httputil.WriteError(w, h.logger, domain.ErrNotAuthenticated)
		return
	}

	httputil.Success(w, http.StatusOK, map[string]any{
		"data": map[string]any{"user": account.Public()},
	})
}

// UpdateMeRequest is the body of a profile update. Passwords change through
// /updateMyPassword only.
type UpdateMeRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// UpdateMe changes the name and email of the logged-in account.
// PATCH /api/v1/users/updateMe
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.GetAccount(r.Context())
	if !ok {
		httputil.WriteError(w, h.logger, domain.ErrNotAuthenticated)
		return
	}

	var req UpdateMeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	if req.Password != "" || req.PasswordConfirm != "" {
		httputil.WriteError(w, h.logger, domain.NewValidationError("password",
			"This route is not for password updates. Please use /updateMyPassword"))
		return
	}

	updated, err := h.accounts.UpdateMe(r.Context(), account, auth.UpdateMeInput{Name: req.Name, Email: req.Email})
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	httputil.Success(w, http.StatusOK, map[string]any{
		"data": map[string]any{"user": updated.Public()},
	})
}

// DeleteMe deactivates the logged-in account.
// DELETE /api/v1/users/deleteMe
func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.GetAccount(r.Context())
	if !ok {
		httputil.WriteError(w, h.logger, domain.ErrNotAuthenticated)
		return
	}

	if err := h.accounts.Deactivate(r.Context(), account); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	h.logger.Info("account deactivated", "account_id", account.ID)
	httputil.ClearSessionCookie(w, h.now(), h.cookieConfig)
	w.WriteHeader(http.StatusNoContent)
}

// GetUser returns any active account by ID. Restricted to staff roles by
// the router.
// GET /api/v1/users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, h.logger, domain.NewValidationError("id", "Invalid user ID"))
		return
	}

	account, err := h.accounts.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	httputil.Success(w, http.StatusOK, map[string]any{
		"data": map[string]any{"user": account.Public()},
	})
}

// sendToken sets the session cookie and writes the token with the account.
func (h *Handler) sendToken(w http.ResponseWriter, status int, session *auth.Session) {
	httputil.SetSessionCookie(w, session.Token, h.now(), h.cookieConfig)
	httputil.Success(w, status, map[string]any{
		"token": session.Token,
		"data":  map[string]any{"user": session.Account.Public()},
	})
}

func (h *Handler) resetURL(token string) string {
	return fmt.Sprintf("%s/api/v1/users/resetPassword/%s", h.baseURL, token)
}

func loginOutcome(err error) string {
	var (
		locked *domain.AccountLockedError
		verr   *domain.ValidationError
	)
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &locked):
		return "locked"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.As(err, &verr):
		return "invalid_input"
	}
	return "error"
}
