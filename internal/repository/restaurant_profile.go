package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/plateful/plateful-api/internal/model"
)

// RestaurantProfileRepository stores the business profile created with a
// restaurant-owner signup.
type RestaurantProfileRepository interface {
	CreateProfile(ctx context.Context, profile *model.RestaurantProfile) (*model.RestaurantProfile, error)
	GetProfileByOwner(ctx context.Context, ownerID bson.ObjectID) (*model.RestaurantProfile, error)
}

const restaurantProfileCollection = "restaurant_profiles"

type restaurantProfileMongoRepository struct {
	db *mongo.Database
}

// NewRestaurantProfileMongoRepository creates the profile repository.
func NewRestaurantProfileMongoRepository(
	ctx context.Context,
	logger *zerolog.Logger,
	db *mongo.Database,
) RestaurantProfileRepository {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	if _, err := db.Collection(restaurantProfileCollection).Indexes().CreateMany(ctx, indexes); err != nil {
		logger.Fatal().Err(err).Msg("failed to create restaurant profile indexes")
	}

	return &restaurantProfileMongoRepository{db: db}
}

func (r *restaurantProfileMongoRepository) CreateProfile(
	ctx context.Context,
	profile *model.RestaurantProfile,
) (*model.RestaurantProfile, error) {
	now := time.Now()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	result, err := r.db.Collection(restaurantProfileCollection).InsertOne(ctx, profile)
	if err != nil {
		return nil, err
	}

	if objectID, ok := result.InsertedID.(bson.ObjectID); ok {
		profile.ID = objectID
	} else {
		return nil, errors.New("failed to convert inserted ID to ObjectID")
	}

	return profile, nil
}

func (r *restaurantProfileMongoRepository) GetProfileByOwner(
	ctx context.Context,
	ownerID bson.ObjectID,
) (*model.RestaurantProfile, error) {
	result := r.db.Collection(restaurantProfileCollection).FindOne(ctx, bson.M{"owner_id": ownerID})
	if result.Err() != nil {
		return nil, result.Err()
	}

	var profile model.RestaurantProfile
	if err := result.Decode(&profile); err != nil {
		return nil, err
	}

	return &profile, nil
}
