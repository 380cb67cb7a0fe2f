package repository

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/plateful/plateful-api/internal/model"
)

// TwoFactorAttemptRepository records two-factor attempts and answers
// rolling-window lockout queries.
type TwoFactorAttemptRepository interface {
	RecordAttempt(ctx context.Context, attempt *model.TwoFactorAttempt) error
	CountRecentFailures(ctx context.Context, userID bson.ObjectID, after time.Time) (int64, error)
}

const twoFactorAttemptCollection = "two_factor_attempts"

type twoFactorAttemptMongoRepository struct {
	db *mongo.Database
}

// NewTwoFactorAttemptMongoRepository creates the attempt repository. Rows
// age out via TTL a day after creation; the lockout window is far shorter.
func NewTwoFactorAttemptMongoRepository(
	ctx context.Context,
	logger *zerolog.Logger,
	db *mongo.Database,
) TwoFactorAttemptRepository {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32((24 * time.Hour).Seconds())),
		},
	}

	if _, err := db.Collection(twoFactorAttemptCollection).Indexes().CreateMany(ctx, indexes); err != nil {
		logger.Fatal().Err(err).Msg("failed to create two-factor attempt indexes")
	}

	return &twoFactorAttemptMongoRepository{db: db}
}

func (r *twoFactorAttemptMongoRepository) RecordAttempt(
	ctx context.Context,
	attempt *model.TwoFactorAttempt,
) error {
	attempt.CreatedAt = time.Now()

	_, err := r.db.Collection(twoFactorAttemptCollection).InsertOne(ctx, attempt)
	return err
}

func (r *twoFactorAttemptMongoRepository) CountRecentFailures(
	ctx context.Context,
	userID bson.ObjectID,
	after time.Time,
) (int64, error) {
	filter := bson.M{
		"user_id":    userID,
		"successful": false,
		"created_at": bson.M{"$gt": after},
	}

	return r.db.Collection(twoFactorAttemptCollection).CountDocuments(ctx, filter)
}
