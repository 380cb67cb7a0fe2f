// Package notifier renders and sends the auth-related transactional email.
package notifier

import (
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/plateful/plateful-api/internal/model"
	"github.com/plateful/plateful-api/internal/usecase"
	"github.com/plateful/plateful-api/shared/mailer"
)

// EmailNotifier implements usecase.Notifier over SMTP. Raw tokens are
// embedded in links against the configured web app base URL.
type EmailNotifier struct {
	mailer  *mailer.Mailer
	appName string
	baseURL string
}

// NewEmailNotifier creates an EmailNotifier. baseURL is the public web app
// origin the email links point at, without a trailing slash.
func NewEmailNotifier(m *mailer.Mailer, appName, baseURL string) usecase.Notifier {
	return &EmailNotifier{
		mailer:  m,
		appName: appName,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (n *EmailNotifier) SendVerificationEmail(user *model.User, rawToken string) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", n.baseURL, url.QueryEscape(rawToken))

	body := fmt.Sprintf(`
		<h2>Welcome to %s, %s!</h2>
		<p>Confirm your email address to start ordering:</p>
		<p><a href="%s">Verify my email</a></p>
		<p>This link expires in 24 hours. If you did not create an account,
		you can ignore this email.</p>
	`, html.EscapeString(n.appName), html.EscapeString(user.Name), link)

	return n.mailer.SendHTML([]string{user.Email}, fmt.Sprintf("Verify your %s email", n.appName), body)
}

func (n *EmailNotifier) SendPasswordResetEmail(user *model.User, rawToken string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", n.baseURL, url.QueryEscape(rawToken))

	body := fmt.Sprintf(`
		<h2>Password reset</h2>
		<p>Hi %s,</p>
		<p>We received a request to reset your %s password:</p>
		<p><a href="%s">Choose a new password</a></p>
		<p>This link expires in 1 hour and can be used once. If you did not
		request a reset, your password is unchanged and no action is needed.</p>
	`, html.EscapeString(user.Name), html.EscapeString(n.appName), link)

	return n.mailer.SendHTML([]string{user.Email}, fmt.Sprintf("Reset your %s password", n.appName), body)
}

func (n *EmailNotifier) SendSecurityAlert(user *model.User, alertType string, details map[string]string) error {
	var sb strings.Builder
	for key, value := range details {
		fmt.Fprintf(&sb, "<li>%s: %s</li>", html.EscapeString(key), html.EscapeString(value))
	}

	extra := ""
	if sb.Len() > 0 {
		extra = fmt.Sprintf("<ul>%s</ul>", sb.String())
	}

	body := fmt.Sprintf(`
		<h2>Security notice</h2>
		<p>Hi %s,</p>
		<p>A security-relevant change was made on your %s account: <b>%s</b>.</p>
		%s
		<p>If this was you, no action is needed. If not, reset your password
		immediately and review your active sessions.</p>
	`, html.EscapeString(user.Name), html.EscapeString(n.appName),
		html.EscapeString(strings.ReplaceAll(alertType, "_", " ")), extra)

	return n.mailer.SendHTML([]string{user.Email}, fmt.Sprintf("%s security notice", n.appName), body)
}

func (n *EmailNotifier) SendTwoFactorEnabled(user *model.User, backupCodes []string) error {
	var sb strings.Builder
	for _, code := range backupCodes {
		fmt.Fprintf(&sb, "<li><code>%s</code></li>", html.EscapeString(code))
	}

	body := fmt.Sprintf(`
		<h2>Two-factor authentication enabled</h2>
		<p>Hi %s,</p>
		<p>Two-factor authentication is now active on your %s account.</p>
		<p>Store these backup codes somewhere safe. Each one works exactly
		once if you lose access to your authenticator app:</p>
		<ul>%s</ul>
		<p>If you did not enable two-factor authentication, reset your
		password immediately.</p>
	`, html.EscapeString(user.Name), html.EscapeString(n.appName), sb.String())

	return n.mailer.SendHTML(
		[]string{user.Email},
		fmt.Sprintf("Two-factor authentication enabled on %s", n.appName),
		body,
	)
}
