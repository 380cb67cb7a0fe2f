package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// SecurityEvent names an auth-relevant event in the audit trail.
type SecurityEvent string

const (
	EventSignup                 SecurityEvent = "SIGNUP"
	EventLoginSuccess           SecurityEvent = "LOGIN_SUCCESS"
	EventLoginFailed            SecurityEvent = "LOGIN_FAILED"
	EventAccountLocked          SecurityEvent = "ACCOUNT_LOCKED"
	EventTwoFactorFailed        SecurityEvent = "TWO_FACTOR_FAILED"
	EventTwoFactorLocked        SecurityEvent = "TWO_FACTOR_LOCKED"
	EventTwoFactorEnabled       SecurityEvent = "TWO_FACTOR_ENABLED"
	EventTwoFactorDisabled      SecurityEvent = "TWO_FACTOR_DISABLED"
	EventEmailVerified          SecurityEvent = "EMAIL_VERIFIED"
	EventPasswordResetRequested SecurityEvent = "PASSWORD_RESET_REQUESTED"
	EventPasswordResetCompleted SecurityEvent = "PASSWORD_RESET_COMPLETED"
	EventTokenRefreshed         SecurityEvent = "TOKEN_REFRESHED"
	EventLogout                 SecurityEvent = "LOGOUT"
	EventGoogleLogin            SecurityEvent = "GOOGLE_LOGIN"
	EventTrustedDeviceAdded     SecurityEvent = "TRUSTED_DEVICE_ADDED"
)

// SecurityLog is an append-only audit record. UserID is nil for failures
// against unknown identities. Entries are never mutated or deleted by the
// auth core; retention is an operational concern.
type SecurityLog struct {
	ID        bson.ObjectID  `bson:"_id,omitempty"`
	UserID    *bson.ObjectID `bson:"user_id,omitempty"`
	EventType SecurityEvent  `bson:"event_type"`
	IPAddress string         `bson:"ip_address"`
	UserAgent string         `bson:"user_agent"`
	Details   map[string]any `bson:"details,omitempty"`
	CreatedAt time.Time      `bson:"created_at"`
}
