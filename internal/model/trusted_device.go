package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// TrustedDevice remembers a client that completed a two-factor challenge and
// asked to be trusted. A present, unexpired, trusted device exempts the user
// from the two-factor challenge for 30 days.
type TrustedDevice struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	UserID    bson.ObjectID `bson:"user_id"`
	DeviceID  string        `bson:"device_id"`
	UserAgent string        `bson:"user_agent"`
	IPAddress string        `bson:"ip_address"`
	Trusted   bool          `bson:"trusted"`
	ExpiresAt time.Time     `bson:"expires_at"`
	CreatedAt time.Time     `bson:"created_at"`
	UpdatedAt time.Time     `bson:"updated_at"`
}
