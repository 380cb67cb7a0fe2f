package usecase

import "errors"

// Domain errors surfaced by the auth core. The HTTP boundary maps each to a
// stable response code; anything not listed here is treated as an internal
// error and never leaks detail to the caller.
var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")

	// ErrInvalidCredentials deliberately covers both "no such user" and
	// "wrong password" so callers cannot probe for account existence.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrAccountLocked    = errors.New("account temporarily locked")
	ErrEmailNotVerified = errors.New("email not verified")
	ErrWeakPassword     = errors.New("password does not meet policy")

	ErrTwoFactorLocked         = errors.New("two-factor attempts temporarily locked")
	ErrInvalidTwoFactorCode    = errors.New("invalid two-factor code")
	ErrTwoFactorAlreadyEnabled = errors.New("two-factor already enabled")
	ErrTwoFactorNotEnabled     = errors.New("two-factor not enabled")
	ErrNoPendingSetup          = errors.New("no pending two-factor setup")

	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrInvalidRefreshToken   = errors.New("invalid refresh token")
	ErrEmailAlreadyVerified  = errors.New("email already verified")
	ErrGoogleAuthFailed      = errors.New("google authentication failed")
	ErrSessionNotFound       = errors.New("session not found")
	ErrTooManyRequests       = errors.New("too many requests")
)
