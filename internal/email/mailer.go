package email

import (
	"context"
	"fmt"
	"net/url"

	"github.com/resend/resend-go/v2"

	"picstoria/api/internal/config"
)

// Sender delivers account emails. Delivery is best effort: callers log
// failures and move on, they never fail the request over one.
type Sender interface {
	SendVerification(ctx context.Context, to, rawToken string) error
	SendPasswordReset(ctx context.Context, to, rawToken string) error
}

// ResendMailer sends through the Resend HTTP API.
type ResendMailer struct {
	client      *resend.Client
	from        string
	frontendURL string
}

func NewResendMailer(cfg config.EmailConfig, frontendURL string) *ResendMailer {
	return &ResendMailer{
		client:      resend.NewClient(cfg.ResendAPIKey),
		from:        cfg.From,
		frontendURL: frontendURL,
	}
}

func (m *ResendMailer) SendVerification(ctx context.Context, to, rawToken string) error {
	link := fmt.Sprintf("%s/verify-email?token=%s&email=%s",
		m.frontendURL, rawToken, url.QueryEscape(to))

	html := fmt.Sprintf(`
		<h2>Welcome to Picstoria</h2>
		<p>Please verify your email to activate your account.</p>
		<a href="%s">Verify Email</a>
		<p>This link expires in 24 hours.</p>
	`, link)

	return m.send(ctx, to, "Verify your Picstoria account", html)
}

func (m *ResendMailer) SendPasswordReset(ctx context.Context, to, rawToken string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s&email=%s",
		m.frontendURL, rawToken, url.QueryEscape(to))

	html := fmt.Sprintf(`
		<h3>Password Reset</h3>
		<p>Click the link below to reset your password:</p>
		<a href="%s">Reset Password</a>
		<p>This link expires in 30 minutes.</p>
	`, link)

	return m.send(ctx, to, "Reset your Picstoria password", html)
}

func (m *ResendMailer) send(ctx context.Context, to, subject, html string) error {
	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	}
	if _, err := m.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}
