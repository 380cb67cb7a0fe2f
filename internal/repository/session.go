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

// SessionRepository defines the interface for refresh-session operations.
type SessionRepository interface {
	CreateSession(ctx context.Context, session *model.Session) (*model.Session, error)
	GetSession(ctx context.Context, id string) (*model.Session, error)
	GetSessionByRefreshToken(ctx context.Context, refreshToken string) (*model.Session, error)
	ListSessionsByUser(ctx context.Context, userID string) ([]*model.Session, error)
	CountSessionsByUser(ctx context.Context, userID string) (int64, error)

	// DeleteOldestSession evicts the session with the earliest created_at.
	DeleteOldestSession(ctx context.Context, userID string) error

	SetRefreshToken(ctx context.Context, id string, refreshToken string, expiresAt time.Time) error
	TouchSession(ctx context.Context, id string) error
	DeleteSession(ctx context.Context, id string) error
	DeleteSessionByRefreshToken(ctx context.Context, refreshToken string) (int64, error)
	DeleteSessionsByUser(ctx context.Context, userID string) (int64, error)
}

const sessionCollection = "sessions"

type sessionMongoRepository struct {
	db *mongo.Database
}

// NewSessionMongoRepository creates the session repository and ensures its
// indexes, including a TTL index that sweeps expired sessions.
func NewSessionMongoRepository(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) SessionRepository {
	collection := db.Collection(sessionCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "refresh_token", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0), // TTL index
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create session indexes")
	}

	return &sessionMongoRepository{db: db}
}

func (r *sessionMongoRepository) CreateSession(ctx context.Context, session *model.Session) (*model.Session, error) {
	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now
	session.LastActiveAt = now

	result, err := r.db.Collection(sessionCollection).InsertOne(ctx, session)
	if err != nil {
		return nil, err
	}

	if objectID, ok := result.InsertedID.(bson.ObjectID); ok {
		session.ID = objectID
	} else {
		return nil, errors.New("failed to convert inserted ID to ObjectID")
	}

	return session, nil
}

func (r *sessionMongoRepository) GetSession(ctx context.Context, id string) (*model.Session, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	return r.findOne(ctx, bson.M{"_id": objectID})
}

func (r *sessionMongoRepository) GetSessionByRefreshToken(
	ctx context.Context,
	refreshToken string,
) (*model.Session, error) {
	return r.findOne(ctx, bson.M{"refresh_token": refreshToken})
}

func (r *sessionMongoRepository) ListSessionsByUser(ctx context.Context, userID string) ([]*model.Session, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.db.Collection(sessionCollection).Find(ctx, bson.M{"user_id": userID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sessions []*model.Session
	for cursor.Next(ctx) {
		var session model.Session
		if err := cursor.Decode(&session); err != nil {
			return nil, err
		}
		sessions = append(sessions, &session)
	}

	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

func (r *sessionMongoRepository) CountSessionsByUser(ctx context.Context, userID string) (int64, error) {
	return r.db.Collection(sessionCollection).CountDocuments(ctx, bson.M{"user_id": userID})
}

func (r *sessionMongoRepository) DeleteOldestSession(ctx context.Context, userID string) error {
	result := r.db.Collection(sessionCollection).FindOneAndDelete(
		ctx,
		bson.M{"user_id": userID},
		options.FindOneAndDelete().SetSort(bson.D{{Key: "created_at", Value: 1}}),
	)

	if result.Err() != nil && !errors.Is(result.Err(), mongo.ErrNoDocuments) {
		return result.Err()
	}

	return nil
}

func (r *sessionMongoRepository) SetRefreshToken(
	ctx context.Context,
	id string,
	refreshToken string,
	expiresAt time.Time,
) error {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	_, err = r.db.Collection(sessionCollection).UpdateOne(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{
			"refresh_token": refreshToken,
			"expires_at":    expiresAt,
			"updated_at":    time.Now(),
		}},
	)

	return err
}

func (r *sessionMongoRepository) TouchSession(ctx context.Context, id string) error {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	now := time.Now()
	_, err = r.db.Collection(sessionCollection).UpdateOne(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"last_active_at": now, "updated_at": now}},
	)

	return err
}

func (r *sessionMongoRepository) DeleteSession(ctx context.Context, id string) error {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	result, err := r.db.Collection(sessionCollection).DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}

	return nil
}

func (r *sessionMongoRepository) DeleteSessionByRefreshToken(
	ctx context.Context,
	refreshToken string,
) (int64, error) {
	result, err := r.db.Collection(sessionCollection).DeleteOne(ctx, bson.M{"refresh_token": refreshToken})
	if err != nil {
		return 0, err
	}

	return result.DeletedCount, nil
}

func (r *sessionMongoRepository) DeleteSessionsByUser(ctx context.Context, userID string) (int64, error) {
	result, err := r.db.Collection(sessionCollection).DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}

	return result.DeletedCount, nil
}

func (r *sessionMongoRepository) findOne(ctx context.Context, filter bson.M) (*model.Session, error) {
	result := r.db.Collection(sessionCollection).FindOne(ctx, filter)
	if result.Err() != nil {
		return nil, result.Err()
	}

	var session model.Session
	if err := result.Decode(&session); err != nil {
		return nil, err
	}

	return &session, nil
}
