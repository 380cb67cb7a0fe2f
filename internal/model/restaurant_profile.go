package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// RestaurantProfile is the business profile created alongside a
// RESTAURANT_OWNER signup. It is created in the same transaction as the
// owner's user record.
type RestaurantProfile struct {
	ID           bson.ObjectID `bson:"_id,omitempty"`
	OwnerID      bson.ObjectID `bson:"owner_id"`
	BusinessName string        `bson:"business_name"`
	Phone        string        `bson:"phone,omitempty"`
	Address      string        `bson:"address,omitempty"`
	CreatedAt    time.Time     `bson:"created_at"`
	UpdatedAt    time.Time     `bson:"updated_at"`
}
