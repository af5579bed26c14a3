package pages

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/natours/natours/internal/http/middleware"
	"github.com/natours/natours/internal/httputil"
	"github.com/natours/natours/internal/notification"
	"github.com/natours/natours/pkg/auth"
	"github.com/natours/natours/pkg/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

// Handler handles server-rendered pages and the forms posted from them.
type Handler struct {
	logger       *slog.Logger
	templates    *template.Template
	accounts     *auth.AccountService
	cookieConfig httputil.CookieConfig
	baseURL      string
	now          func() time.Time
}

// NewHandler creates a new pages handler.
func NewHandler(logger *slog.Logger, accounts *auth.AccountService, cookieConfig httputil.CookieConfig, baseURL string) (*Handler, error) {
	tmpl, err := template.New("pages").
		Funcs(template.FuncMap{"firstName": notification.FirstName}).
		ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	return &Handler{
		logger:       logger,
		templates:    tmpl,
		accounts:     accounts,
		cookieConfig: cookieConfig,
		baseURL:      strings.TrimRight(baseURL, "/"),
		now:          time.Now,
	}, nil
}

// PageData holds data for template rendering. Account is nil for visitors.
type PageData struct {
	Title   string
	Account *domain.Account
	Error   string
	Notice  string
	// Email refills the email field after a failed form submission.
	Email string
	Name  string
}

// Overview renders the landing page.
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "overview.html", PageData{Title: "All Tours"})
}

// Login renders the login page.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "login.html", PageData{Title: "Log into your account"})
}

// Signup renders the signup page.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "signup.html", PageData{Title: "Sign Up"})
}

// Account renders the account page. Visitors are sent to the login page.
func (h *Handler) Account(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetAccount(r.Context()); !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	h.render(w, r, http.StatusOK, "account.html", PageData{Title: "Your account"})
}

// SubmitLogin logs in from the login form and redirects to the overview.
// POST /login
func (h *Handler) SubmitLogin(w http.ResponseWriter, r *http.Request) {
	data := PageData{Title: "Log into your account"}
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, "login.html", data, err)
		return
	}
	data.Email = r.PostFormValue("email")

	session, err := h.accounts.Login(r.Context(), data.Email, r.PostFormValue("password"))
	if err != nil {
		h.renderError(w, r, "login.html", data, err)
		return
	}

	httputil.SetSessionCookie(w, session.Token, h.now(), h.cookieConfig)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// SubmitSignup creates an account from the signup form and logs it in.
// POST /signup
func (h *Handler) SubmitSignup(w http.ResponseWriter, r *http.Request) {
	data := PageData{Title: "Sign Up"}
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, "signup.html", data, err)
		return
	}
	in := auth.SignupInput{
		Name:            r.PostFormValue("name"),
		Email:           r.PostFormValue("email"),
		Password:        r.PostFormValue("password"),
		PasswordConfirm: r.PostFormValue("passwordConfirm"),
	}
	data.Name, data.Email = in.Name, in.Email

	session, err := h.accounts.Signup(r.Context(), in, h.baseURL+"/me")
	if err != nil {
		h.renderError(w, r, "signup.html", data, err)
		return
	}

	h.logger.Info("account created", "account_id", session.Account.ID)
	httputil.SetSessionCookie(w, session.Token, h.now(), h.cookieConfig)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// SubmitUserData updates the name and email of the logged-in account from
// the account page form and renders the page again.
// POST /submit-user-data
func (h *Handler) SubmitUserData(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.GetAccount(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	data := PageData{Title: "Your account", Account: account}
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, "account.html", data, err)
		return
	}

	updated, err := h.accounts.UpdateMe(r.Context(), account, auth.UpdateMeInput{
		Name:  r.PostFormValue("name"),
		Email: r.PostFormValue("email"),
	})
	if err != nil {
		h.renderError(w, r, "account.html", data, err)
		return
	}

	data.Account = updated
	data.Notice = "Your data has been updated"
	h.render(w, r, http.StatusOK, "account.html", data)
}

// renderError renders tmpl with the client-safe message for err.
func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, tmpl string, data PageData, err error) {
	status, message := httputil.ErrorStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("page form failed", "template", tmpl, "error", err)
	}
	data.Error = message
	h.render(w, r, status, tmpl, data)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, tmpl string, data PageData) {
	if data.Account == nil {
		if account, ok := middleware.GetAccount(r.Context()); ok {
			data.Account = account
		}
	}

	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, tmpl, data); err != nil {
		h.logger.Error("failed to render page", "template", tmpl, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
