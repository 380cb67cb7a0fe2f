package usecase

import "time"

// Security policy knobs for the auth core. Changing a window here changes
// the corresponding lockout or bypass behavior everywhere it is enforced.
const (
	maxLoginAttempts  = 5
	loginLockDuration = 15 * time.Minute

	loginIPLimit  = 5
	loginIPWindow = 15 * time.Minute

	twoFactorMaxFailures       = 5
	twoFactorFailureWindow     = time.Hour
	twoFactorLockDuration      = 30 * time.Minute
	twoFactorRechallengeWindow = 12 * time.Hour

	pendingSetupTTL  = 15 * time.Minute
	trustedDeviceTTL = 30 * 24 * time.Hour

	emailVerifyTokenTTL   = 24 * time.Hour
	passwordResetTokenTTL = time.Hour

	resetIPLimit      = 3
	resetIPWindow     = time.Hour
	resetUserCooldown = 15 * time.Minute
	resendCooldown    = time.Minute
)

// RequestMeta carries per-request client attributes into the core for rate
// limiting, trusted-device lookups and audit logging.
type RequestMeta struct {
	IP        string
	UserAgent string
	DeviceID  string
}
