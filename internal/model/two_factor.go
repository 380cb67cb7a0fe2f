package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// PendingTwoFactorSecret holds a TOTP secret that has been provisioned but
// not yet confirmed. It is promoted onto the user record on successful
// verification and expires after 15 minutes otherwise.
type PendingTwoFactorSecret struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	UserID    bson.ObjectID `bson:"user_id"`
	Secret    string        `bson:"secret"`
	ExpiresAt time.Time     `bson:"expires_at"`
	CreatedAt time.Time     `bson:"created_at"`
}

// BackupCode is a single-use fallback credential for two-factor login.
// Only the SHA-256 hash of the code is persisted.
type BackupCode struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	UserID    bson.ObjectID `bson:"user_id"`
	CodeHash  string        `bson:"code_hash"`
	Used      bool          `bson:"used"`
	UsedAt    *time.Time    `bson:"used_at,omitempty"`
	CreatedAt time.Time     `bson:"created_at"`
}

// TwoFactorAttempt records a single two-factor verification attempt. It is
// the rolling-window source for the two-factor lockout, separate from the
// audit trail in SecurityLog.
type TwoFactorAttempt struct {
	ID         bson.ObjectID `bson:"_id,omitempty"`
	UserID     bson.ObjectID `bson:"user_id"`
	IPAddress  string        `bson:"ip_address"`
	UserAgent  string        `bson:"user_agent"`
	Successful bool          `bson:"successful"`
	CreatedAt  time.Time     `bson:"created_at"`
}
