package notification

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/natours/natours/pkg/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailService delivers account mail over SMTP.
type EmailService struct {
	config EmailConfig
	send   sendFunc
}

func NewEmailService(config EmailConfig) *EmailService {
	return &EmailService{config: config, send: smtp.SendMail}
}

type mailData struct {
	FirstName string
	URL       string
}

func (s *EmailService) SendWelcome(ctx context.Context, account *domain.Account, url string) error {
	return s.sendTemplate(ctx, account, "Welcome to the Natours Family!", "welcome.html", url)
}

func (s *EmailService) SendPasswordReset(ctx context.Context, account *domain.Account, resetURL string) error {
	return s.sendTemplate(ctx, account, "Your password reset token (valid for only 10 minutes)", "password_reset.html", resetURL)
}

func (s *EmailService) sendTemplate(ctx context.Context, account *domain.Account, subject, name, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, name, mailData{FirstName: FirstName(account.Name), URL: url}); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	return s.sendEmail(account.Email, subject, body.String())
}

func (s *EmailService) sendEmail(to, subject, body string) error {
	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		from, to, subject, body)

	var auth smtp.Auth
	if s.config.User != "" {
		auth = smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
	}
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	return s.send(addr, auth, s.config.From, []string{to}, []byte(msg))
}

// LogMailer writes mail to the log instead of sending it. It is used when
// SMTP is not configured.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendWelcome(_ context.Context, account *domain.Account, url string) error {
	m.logger.Info("welcome email (not sent, SMTP disabled)", "to", account.Email, "url", url)
	return nil
}

func (m *LogMailer) SendPasswordReset(_ context.Context, account *domain.Account, resetURL string) error {
	m.logger.Info("password reset email (not sent, SMTP disabled)", "to", account.Email, "reset_url", resetURL)
	return nil
}

// FirstName returns the first word of a full name.
func FirstName(name string) string {
	if f := strings.Fields(name); len(f) > 0 {
		return f[0]
	}
	return name
}
