package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// TokenPurpose distinguishes the two kinds of single-use tokens.
type TokenPurpose string

const (
	PurposeEmailVerify   TokenPurpose = "email_verify"
	PurposePasswordReset TokenPurpose = "password_reset"
)

// VerificationToken is a single-use, time-boxed token for email verification
// or password reset. Only the SHA-256 hash of the raw token is persisted;
// the raw token lives exclusively in the email link.
type VerificationToken struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	UserID    bson.ObjectID `bson:"user_id"`
	Purpose   TokenPurpose  `bson:"purpose"`
	TokenHash string        `bson:"token_hash"`
	Used      bool          `bson:"used"`
	ExpiresAt time.Time     `bson:"expires_at"`
	CreatedAt time.Time     `bson:"created_at"`
	UpdatedAt time.Time     `bson:"updated_at"`
}
