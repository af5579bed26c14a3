package httputil

import (
	"net/http"
	"strings"
	"time"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "jwt"

// loggedOutValue replaces the token on logout.
const loggedOutValue = "loggedout"

// CookieConfig holds cookie configuration.
type CookieConfig struct {
	Domain   string
	Path     string
	Secure   bool // Set to true in production (HTTPS)
	SameSite http.SameSite
	TTL      time.Duration
}

// DefaultCookieConfig returns default cookie configuration.
func DefaultCookieConfig() CookieConfig {
	return CookieConfig{
		Path:     "/",
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
		TTL:      90 * 24 * time.Hour,
	}
}

// SetSessionCookie sets the HttpOnly session cookie.
func SetSessionCookie(w http.ResponseWriter, token string, now time.Time, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		Expires:  now.Add(cfg.TTL),
		MaxAge:   int(cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	})
}

// ClearSessionCookie overwrites the session cookie with a placeholder that
// expired ten seconds ago.
func ClearSessionCookie(w http.ResponseWriter, now time.Time, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    loggedOutValue,
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		Expires:  now.Add(-10 * time.Second),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	})
}

// GetSessionToken extracts the session token from the cookie. The logout
// placeholder counts as no token.
func GetSessionToken(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" || cookie.Value == loggedOutValue {
		return "", false
	}
	return cookie.Value, true
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// RequestToken returns the session token of a request. The Authorization
// header takes precedence over the cookie.
func RequestToken(r *http.Request) string {
	if token, ok := BearerToken(r); ok {
		return token
	}
	if token, ok := GetSessionToken(r); ok {
		return token
	}
	return ""
}
