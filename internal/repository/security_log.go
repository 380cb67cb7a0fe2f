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

// SecurityLogRepository appends to the audit trail. There are deliberately
// no update or delete operations; retention is handled outside the core.
type SecurityLogRepository interface {
	Append(ctx context.Context, entry *model.SecurityLog) error
	ListByUser(ctx context.Context, userID bson.ObjectID, limit int64) ([]*model.SecurityLog, error)
}

const securityLogCollection = "security_logs"

type securityLogMongoRepository struct {
	db *mongo.Database
}

// NewSecurityLogMongoRepository creates the security log repository.
func NewSecurityLogMongoRepository(
	ctx context.Context,
	logger *zerolog.Logger,
	db *mongo.Database,
) SecurityLogRepository {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "event_type", Value: 1}, {Key: "created_at", Value: -1}},
		},
	}

	if _, err := db.Collection(securityLogCollection).Indexes().CreateMany(ctx, indexes); err != nil {
		logger.Fatal().Err(err).Msg("failed to create security log indexes")
	}

	return &securityLogMongoRepository{db: db}
}

func (r *securityLogMongoRepository) Append(ctx context.Context, entry *model.SecurityLog) error {
	entry.CreatedAt = time.Now()

	_, err := r.db.Collection(securityLogCollection).InsertOne(ctx, entry)
	return err
}

func (r *securityLogMongoRepository) ListByUser(
	ctx context.Context,
	userID bson.ObjectID,
	limit int64,
) ([]*model.SecurityLog, error) {
	if limit == 0 {
		limit = 50
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.db.Collection(securityLogCollection).Find(ctx, bson.M{"user_id": userID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []*model.SecurityLog
	for cursor.Next(ctx) {
		var entry model.SecurityLog
		if err := cursor.Decode(&entry); err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}

	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}
