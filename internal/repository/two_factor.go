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

// TwoFactorRepository defines the interface for pending-secret and
// backup-code operations.
type TwoFactorRepository interface {
	// UpsertPendingSecret replaces any existing pending secret for the user.
	// Repeating setup always starts over with a fresh secret.
	UpsertPendingSecret(ctx context.Context, pending *model.PendingTwoFactorSecret) error

	// GetPendingSecret returns the user's unexpired pending secret.
	GetPendingSecret(ctx context.Context, userID bson.ObjectID) (*model.PendingTwoFactorSecret, error)

	DeletePendingSecret(ctx context.Context, userID bson.ObjectID) error

	// ReplaceBackupCodes removes all codes for the user and inserts new ones.
	ReplaceBackupCodes(ctx context.Context, userID bson.ObjectID, codes []*model.BackupCode) error

	// ConsumeBackupCode atomically marks a matching unused code as used.
	// Returns false when no unused code matches, so a replayed code cannot
	// redeem twice even under concurrent attempts.
	ConsumeBackupCode(ctx context.Context, userID bson.ObjectID, codeHash string) (bool, error)

	DeleteBackupCodes(ctx context.Context, userID bson.ObjectID) error
}

const (
	pendingSecretCollection = "pending_two_factor_secrets"
	backupCodeCollection    = "backup_codes"
)

type twoFactorMongoRepository struct {
	db *mongo.Database
}

// NewTwoFactorMongoRepository creates the two-factor repository and ensures
// its indexes. Pending secrets expire via TTL.
func NewTwoFactorMongoRepository(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) TwoFactorRepository {
	pendingIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0), // TTL index
		},
	}
	if _, err := db.Collection(pendingSecretCollection).Indexes().CreateMany(ctx, pendingIndexes); err != nil {
		logger.Fatal().Err(err).Msg("failed to create pending two-factor secret indexes")
	}

	codeIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "code_hash", Value: 1}},
		},
	}
	if _, err := db.Collection(backupCodeCollection).Indexes().CreateMany(ctx, codeIndexes); err != nil {
		logger.Fatal().Err(err).Msg("failed to create backup code indexes")
	}

	return &twoFactorMongoRepository{db: db}
}

func (r *twoFactorMongoRepository) UpsertPendingSecret(
	ctx context.Context,
	pending *model.PendingTwoFactorSecret,
) error {
	pending.CreatedAt = time.Now()

	_, err := r.db.Collection(pendingSecretCollection).ReplaceOne(
		ctx,
		bson.M{"user_id": pending.UserID},
		pending,
		options.Replace().SetUpsert(true),
	)

	return err
}

func (r *twoFactorMongoRepository) GetPendingSecret(
	ctx context.Context,
	userID bson.ObjectID,
) (*model.PendingTwoFactorSecret, error) {
	filter := bson.M{
		"user_id":    userID,
		"expires_at": bson.M{"$gt": time.Now()},
	}

	var pending model.PendingTwoFactorSecret
	err := r.db.Collection(pendingSecretCollection).FindOne(ctx, filter).Decode(&pending)
	if err != nil {
		return nil, err
	}

	return &pending, nil
}

func (r *twoFactorMongoRepository) DeletePendingSecret(ctx context.Context, userID bson.ObjectID) error {
	_, err := r.db.Collection(pendingSecretCollection).DeleteOne(ctx, bson.M{"user_id": userID})
	return err
}

func (r *twoFactorMongoRepository) ReplaceBackupCodes(
	ctx context.Context,
	userID bson.ObjectID,
	codes []*model.BackupCode,
) error {
	collection := r.db.Collection(backupCodeCollection)

	if _, err := collection.DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
		return err
	}

	now := time.Now()
	docs := make([]any, 0, len(codes))
	for _, code := range codes {
		code.UserID = userID
		code.CreatedAt = now
		docs = append(docs, code)
	}

	_, err := collection.InsertMany(ctx, docs)
	return err
}

func (r *twoFactorMongoRepository) ConsumeBackupCode(
	ctx context.Context,
	userID bson.ObjectID,
	codeHash string,
) (bool, error) {
	now := time.Now()
	result, err := r.db.Collection(backupCodeCollection).UpdateOne(
		ctx,
		bson.M{"user_id": userID, "code_hash": codeHash, "used": false},
		bson.M{"$set": bson.M{"used": true, "used_at": now}},
	)
	if err != nil {
		return false, err
	}

	return result.ModifiedCount == 1, nil
}

func (r *twoFactorMongoRepository) DeleteBackupCodes(ctx context.Context, userID bson.ObjectID) error {
	_, err := r.db.Collection(backupCodeCollection).DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}
