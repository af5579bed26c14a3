package pages

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Middlewares holds the middleware the page routes depend on.
type Middlewares struct {
	// OptionalAuth attaches the visitor's account when a valid token is
	// present.
	OptionalAuth func(http.Handler) http.Handler
	// AuthLimit throttles the login and signup forms.
	AuthLimit func(http.Handler) http.Handler
}

// RegisterRoutes registers page routes and their form handlers.
func (h *Handler) RegisterRoutes(r chi.Router, mw Middlewares) {
	r.Group(func(r chi.Router) {
		r.Use(mw.OptionalAuth)
		r.Get("/", h.Overview)
		r.Get("/login", h.Login)
		r.Get("/signup", h.Signup)
		r.Get("/me", h.Account)
		r.Post("/submit-user-data", h.SubmitUserData)

		r.Group(func(r chi.Router) {
			r.Use(mw.AuthLimit)
			r.Post("/login", h.SubmitLogin)
			r.Post("/signup", h.SubmitSignup)
		})
	})
}
