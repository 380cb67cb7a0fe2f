package handler

import (
	"time"

	"github.com/plateful/plateful-api/internal/model"
)

type registerRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,strong_password"`
	Name     string `json:"name"     validate:"required,min=1,max=100"`
	Role     string `json:"role"     validate:"required,oneof=CUSTOMER RESTAURANT_OWNER"`

	// Required when role is RESTAURANT_OWNER.
	BusinessName string `json:"business_name" validate:"required_if=Role RESTAURANT_OWNER,omitempty,max=200"`
	Phone        string `json:"phone"         validate:"required_if=Role RESTAURANT_OWNER,omitempty,max=30"`
	Address      string `json:"address"       validate:"required_if=Role RESTAURANT_OWNER,omitempty,max=300"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type verifyTwoFactorRequest struct {
	ChallengeToken string `json:"challenge_token" validate:"required"`
	Code           string `json:"code"            validate:"required,min=6,max=15"`
	RememberDevice bool   `json:"remember_device"`
}

// The refresh token may arrive in the body or in the httpOnly cookie, so the
// field itself is optional.
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type googleLoginRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

type verifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

type resendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"        validate:"required"`
	NewPassword string `json:"new_password" validate:"required,strong_password"`
}

type twoFactorCodeRequest struct {
	Code string `json:"code" validate:"required,min=6,max=15"`
}

type userResponse struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	Role             string    `json:"role"`
	Provider         string    `json:"provider"`
	EmailVerified    bool      `json:"email_verified"`
	TwoFactorEnabled bool      `json:"two_factor_enabled"`
	CreatedAt        time.Time `json:"created_at"`
}

func newUserResponse(user *model.User) userResponse {
	return userResponse{
		ID:               user.ID.Hex(),
		Email:            user.Email,
		Name:             user.Name,
		Role:             string(user.Role),
		Provider:         string(user.Provider),
		EmailVerified:    user.EmailVerified,
		TwoFactorEnabled: user.TwoFactorEnabled,
		CreatedAt:        user.CreatedAt,
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type loginResponse struct {
	User            userResponse  `json:"user"`
	Tokens          tokenResponse `json:"tokens"`
	TrustedDeviceID string        `json:"trusted_device_id,omitempty"`
}

type twoFactorChallengeResponse struct {
	TwoFactorRequired bool   `json:"two_factor_required"`
	ChallengeToken    string `json:"challenge_token"`
}

type twoFactorSetupResponse struct {
	Secret     string `json:"secret"`
	OtpauthURL string `json:"otpauth_url"`
	QRCode     string `json:"qr_code"`
}

type backupCodesResponse struct {
	BackupCodes []string `json:"backup_codes"`
}

type sessionResponse struct {
	ID           string    `json:"id"`
	Provider     string    `json:"provider"`
	IPAddress    string    `json:"ip_address,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
	Current      bool      `json:"current"`
	LastActiveAt time.Time `json:"last_active_at"`
	CreatedAt    time.Time `json:"created_at"`
}

func newSessionResponse(session *model.Session, currentSessionID string) sessionResponse {
	resp := sessionResponse{
		ID:           session.ID.Hex(),
		Provider:     string(session.Provider),
		Current:      session.ID.Hex() == currentSessionID,
		LastActiveAt: session.LastActiveAt,
		CreatedAt:    session.CreatedAt,
	}
	if session.IPAddress != nil {
		resp.IPAddress = *session.IPAddress
	}
	if session.UserAgent != nil {
		resp.UserAgent = *session.UserAgent
	}
	return resp
}

type securityEventResponse struct {
	EventType string         `json:"event_type"`
	IPAddress string         `json:"ip_address,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func newSecurityEventResponse(entry *model.SecurityLog) securityEventResponse {
	return securityEventResponse{
		EventType: string(entry.EventType),
		IPAddress: entry.IPAddress,
		UserAgent: entry.UserAgent,
		Details:   entry.Details,
		CreatedAt: entry.CreatedAt,
	}
}
