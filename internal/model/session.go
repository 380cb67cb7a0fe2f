package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Session represents a refresh-token session. A user holds at most
// MaxSessionsPerUser live sessions; creating one past the cap evicts the
// oldest by creation time.
type Session struct {
	ID           bson.ObjectID `bson:"_id,omitempty"`
	UserID       string        `bson:"user_id"`
	RefreshToken string        `bson:"refresh_token"`
	Provider     Provider      `bson:"provider"`
	IPAddress    *string       `bson:"ip_address"`
	UserAgent    *string       `bson:"user_agent"`
	ExpiresAt    time.Time     `bson:"expires_at"`
	LastActiveAt time.Time     `bson:"last_active_at"`
	CreatedAt    time.Time     `bson:"created_at"`
	UpdatedAt    time.Time     `bson:"updated_at"`
}

// MaxSessionsPerUser bounds concurrent refresh sessions per account.
const MaxSessionsPerUser = 5
