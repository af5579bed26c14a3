package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/natours/natours/pkg/domain"
)

// JSON writes v as a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// ErrorResponse is the body of every failed request. Status is "fail" for
// client errors and "error" for server errors.
type ErrorResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// Error writes an error envelope with the given status code.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Status: statusText(status), Message: message})
}

// Success writes {"status":"success", ...fields}.
func Success(w http.ResponseWriter, status int, fields map[string]any) {
	body := map[string]any{"status": "success"}
	for k, v := range fields {
		body[k] = v
	}
	JSON(w, status, body)
}

// DecodeJSON reads a JSON request body into v. An empty body leaves v
// untouched.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return err
	}
	return domain.NewValidationError("body", "Invalid JSON body")
}

// WriteError maps err onto a status code and message and writes it. Server
// errors are logged; their details never reach the client.
func WriteError(w http.ResponseWriter, logger *slog.Logger, err error) {
	if logger == nil {
		logger = slog.Default()
	}

	status, message := ErrorStatus(err)
	if status >= http.StatusInternalServerError {
		var dep *domain.DependencyError
		if errors.As(err, &dep) {
			logger.Error("dependency failure", "op", dep.Op, "error", dep.Err)
		} else {
			logger.Error("unhandled error", "error", err)
		}
	}

	resp := ErrorResponse{Status: statusText(status), Message: message}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		resp.Errors = verr.Fields
	}
	JSON(w, status, resp)
}

// ErrorStatus maps err onto a status code and a message that is safe to show
// to the client.
func ErrorStatus(err error) (int, string) {
	var (
		verr   *domain.ValidationError
		locked *domain.AccountLockedError
		dep    *domain.DependencyError
		maxErr *http.MaxBytesError
	)

	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, validationMessage(verr)
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge, "Request body too large"
	case errors.Is(err, domain.ErrEmailTaken):
		return http.StatusBadRequest, "Email is already in use. Please use another email"
	case errors.Is(err, domain.ErrNotAuthenticated):
		return http.StatusUnauthorized, "You are not logged in! Please log in to proceed"
	case errors.Is(err, domain.ErrInvalidToken):
		return http.StatusUnauthorized, "Invalid token. Please log in again!"
	case errors.Is(err, domain.ErrExpiredToken):
		return http.StatusUnauthorized, "Your token has expired! Please log in again"
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusUnauthorized, "The user belonging to this token does no longer exist"
	case errors.Is(err, domain.ErrPasswordChangedSinceIssue):
		return http.StatusUnauthorized, "User recently changed password! Please log in again"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Incorrect email or password"
	case errors.Is(err, domain.ErrIncorrectPassword):
		return http.StatusUnauthorized, "Your current password is incorrect"
	case errors.As(err, &locked):
		return http.StatusTooManyRequests, locked.Error()
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "You do not have permission to perform this action"
	case errors.Is(err, domain.ErrResetTokenInvalid):
		return http.StatusBadRequest, "Token is invalid or has expired"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "No user found with that ID"
	case errors.As(err, &dep):
		if strings.HasPrefix(dep.Op, "send") {
			return http.StatusInternalServerError, "There was an error sending the email. Try again later!"
		}
		return http.StatusBadGateway, "Service temporarily unavailable. Try again later!"
	}
	return http.StatusInternalServerError, "Something went very wrong!"
}

func statusText(status int) string {
	if status >= 500 {
		return "error"
	}
	return "fail"
}

func validationMessage(verr *domain.ValidationError) string {
	msgs := make([]string, 0, len(verr.Fields))
	for _, m := range verr.Fields {
		msgs = append(msgs, m)
	}
	sort.Strings(msgs)
	return "Invalid input data. " + strings.Join(msgs, ". ")
}
