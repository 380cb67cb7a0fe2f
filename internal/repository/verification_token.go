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

// VerificationTokenRepository defines the interface for single-use token
// operations (email verification and password reset).
type VerificationTokenRepository interface {
	// CreateToken creates a new verification token.
	CreateToken(ctx context.Context, token *model.VerificationToken) (*model.VerificationToken, error)

	// GetUnusedTokenByHash retrieves an unused token by its hash and purpose.
	// Expiry is the caller's check; used tokens are never returned.
	GetUnusedTokenByHash(ctx context.Context, hash string, purpose model.TokenPurpose) (*model.VerificationToken, error)

	// MarkTokenAsUsed marks a token as used. Must run inside the same
	// transaction as the mutation the token authorizes.
	MarkTokenAsUsed(ctx context.Context, id bson.ObjectID) error

	// InvalidateUserTokens invalidates all unused tokens of a purpose for a user.
	InvalidateUserTokens(ctx context.Context, userID bson.ObjectID, purpose model.TokenPurpose) error

	// HasRecentToken reports whether an unused token of this purpose was
	// created for the user after the given time.
	HasRecentToken(ctx context.Context, userID bson.ObjectID, purpose model.TokenPurpose, after time.Time) (bool, error)
}

const verificationTokenCollection = "verification_tokens"

type verificationTokenMongoRepository struct {
	db *mongo.Database
}

// NewVerificationTokenMongoRepository creates the token repository and
// ensures its indexes, including a TTL sweep on expiry.
func NewVerificationTokenMongoRepository(
	ctx context.Context,
	logger *zerolog.Logger,
	db *mongo.Database,
) VerificationTokenRepository {
	collection := db.Collection(verificationTokenCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token_hash", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "purpose", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0), // TTL index
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create verification token indexes")
	}

	return &verificationTokenMongoRepository{db: db}
}

func (r *verificationTokenMongoRepository) CreateToken(
	ctx context.Context,
	token *model.VerificationToken,
) (*model.VerificationToken, error) {
	now := time.Now()
	token.CreatedAt = now
	token.UpdatedAt = now
	token.Used = false

	result, err := r.db.Collection(verificationTokenCollection).InsertOne(ctx, token)
	if err != nil {
		return nil, err
	}

	if objectID, ok := result.InsertedID.(bson.ObjectID); ok {
		token.ID = objectID
	}

	return token, nil
}

func (r *verificationTokenMongoRepository) GetUnusedTokenByHash(
	ctx context.Context,
	hash string,
	purpose model.TokenPurpose,
) (*model.VerificationToken, error) {
	filter := bson.M{"token_hash": hash, "purpose": purpose, "used": false}

	var token model.VerificationToken
	err := r.db.Collection(verificationTokenCollection).FindOne(ctx, filter).Decode(&token)
	if err != nil {
		return nil, err
	}

	return &token, nil
}

func (r *verificationTokenMongoRepository) MarkTokenAsUsed(ctx context.Context, id bson.ObjectID) error {
	filter := bson.M{"_id": id, "used": false}
	update := bson.M{
		"$set": bson.M{
			"used":       true,
			"updated_at": time.Now(),
		},
	}

	result, err := r.db.Collection(verificationTokenCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}

	return nil
}

func (r *verificationTokenMongoRepository) InvalidateUserTokens(
	ctx context.Context,
	userID bson.ObjectID,
	purpose model.TokenPurpose,
) error {
	filter := bson.M{
		"user_id": userID,
		"purpose": purpose,
		"used":    false,
	}
	update := bson.M{
		"$set": bson.M{
			"used":       true,
			"updated_at": time.Now(),
		},
	}

	_, err := r.db.Collection(verificationTokenCollection).UpdateMany(ctx, filter, update)
	return err
}

func (r *verificationTokenMongoRepository) HasRecentToken(
	ctx context.Context,
	userID bson.ObjectID,
	purpose model.TokenPurpose,
	after time.Time,
) (bool, error) {
	filter := bson.M{
		"user_id":    userID,
		"purpose":    purpose,
		"used":       false,
		"created_at": bson.M{"$gt": after},
	}

	count, err := r.db.Collection(verificationTokenCollection).CountDocuments(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}
