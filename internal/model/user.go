package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Role is the authorization role assigned to a user account.
type Role string

const (
	RoleCustomer        Role = "CUSTOMER"
	RoleRestaurantOwner Role = "RESTAURANT_OWNER"
	RoleAdmin           Role = "ADMIN"
)

// Provider identifies how an account authenticates.
type Provider string

const (
	ProviderLocal  Provider = "local"
	ProviderGoogle Provider = "google"
)

// User represents a user account in the authentication system.
// Accounts created through Google are verified immediately; local accounts
// must confirm their email before they can log in.
type User struct {
	ID                   bson.ObjectID `bson:"_id,omitempty"`
	Email                string        `bson:"email"`
	Name                 string        `bson:"name"`
	PasswordHash         string        `bson:"password_hash,omitempty"`
	Role                 Role          `bson:"role"`
	Provider             Provider      `bson:"provider"`
	GoogleID             string        `bson:"google_id,omitempty"`
	EmailVerified        bool          `bson:"email_verified"`
	TwoFactorEnabled     bool          `bson:"two_factor_enabled"`
	TwoFactorSecret      string        `bson:"two_factor_secret,omitempty"`
	LastTwoFactorAt      *time.Time    `bson:"last_two_factor_at,omitempty"`
	LoginAttempts        int           `bson:"login_attempts"`
	LockedUntil          *time.Time    `bson:"locked_until,omitempty"`
	TwoFactorLockedUntil *time.Time    `bson:"two_factor_locked_until,omitempty"`
	PasswordChangedAt    *time.Time    `bson:"password_changed_at,omitempty"`
	CreatedAt            time.Time     `bson:"created_at"`
	UpdatedAt            time.Time     `bson:"updated_at"`
}
