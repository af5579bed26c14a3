package users

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Middlewares are the per-route guards the users routes need.
type Middlewares struct {
	Auth       func(http.Handler) http.Handler
	StaffOnly  func(http.Handler) http.Handler
	AuthLimit  func(http.Handler) http.Handler
	ResetLimit func(http.Handler) http.Handler
}

// Routes returns the router mounted at /api/v1/users.
func (h *Handler) Routes(mw Middlewares) chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(mw.AuthLimit)
		r.Post("/signup", h.Signup)
		r.Post("/login", h.Login)
	})
	r.Get("/logout", h.Logout)
	r.Post("/logout", h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(mw.ResetLimit)
		r.Post("/forgotPassword", h.ForgotPassword)
		r.Patch("/resetPassword/{token}", h.ResetPassword)
	})

	r.Group(func(r chi.Router) {
		r.Use(mw.Auth)
		r.Patch("/updateMyPassword", h.UpdateMyPassword)
		r.Get("/me", h.GetMe)
		r.Patch("/updateMe", h.UpdateMe)
		r.Delete("/deleteMe", h.DeleteMe)

		r.With(mw.StaffOnly).Get("/{id}", h.GetUser)
	})

	return r
}
