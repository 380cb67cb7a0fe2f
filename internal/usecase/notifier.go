package usecase

import "github.com/plateful/plateful-api/internal/model"

// Notifier dispatches auth-related email. Rendering and transport live
// outside the core. A dispatch failure never rolls back committed state;
// callers log it and move on.
type Notifier interface {
	SendVerificationEmail(user *model.User, rawToken string) error
	SendPasswordResetEmail(user *model.User, rawToken string) error
	SendSecurityAlert(user *model.User, alertType string, details map[string]string) error
	SendTwoFactorEnabled(user *model.User, backupCodes []string) error
}
