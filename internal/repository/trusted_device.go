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

// TrustedDeviceRepository defines the interface for trusted-device lookups.
// Devices are keyed by (user, device id) where the device id travels in an
// httpOnly cookie.
type TrustedDeviceRepository interface {
	UpsertDevice(ctx context.Context, device *model.TrustedDevice) error

	// GetDevice returns the device for (userID, deviceID) regardless of
	// expiry; the caller decides whether it still grants a bypass.
	GetDevice(ctx context.Context, userID bson.ObjectID, deviceID string) (*model.TrustedDevice, error)

	DeleteDevicesByUser(ctx context.Context, userID bson.ObjectID) error
}

const trustedDeviceCollection = "trusted_devices"

type trustedDeviceMongoRepository struct {
	db *mongo.Database
}

// NewTrustedDeviceMongoRepository creates the trusted-device repository and
// ensures its indexes. Expired devices are swept via TTL.
func NewTrustedDeviceMongoRepository(
	ctx context.Context,
	logger *zerolog.Logger,
	db *mongo.Database,
) TrustedDeviceRepository {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "device_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0), // TTL index
		},
	}

	if _, err := db.Collection(trustedDeviceCollection).Indexes().CreateMany(ctx, indexes); err != nil {
		logger.Fatal().Err(err).Msg("failed to create trusted device indexes")
	}

	return &trustedDeviceMongoRepository{db: db}
}

func (r *trustedDeviceMongoRepository) UpsertDevice(ctx context.Context, device *model.TrustedDevice) error {
	now := time.Now()
	device.CreatedAt = now
	device.UpdatedAt = now

	_, err := r.db.Collection(trustedDeviceCollection).ReplaceOne(
		ctx,
		bson.M{"user_id": device.UserID, "device_id": device.DeviceID},
		device,
		options.Replace().SetUpsert(true),
	)

	return err
}

func (r *trustedDeviceMongoRepository) GetDevice(
	ctx context.Context,
	userID bson.ObjectID,
	deviceID string,
) (*model.TrustedDevice, error) {
	filter := bson.M{"user_id": userID, "device_id": deviceID}

	var device model.TrustedDevice
	err := r.db.Collection(trustedDeviceCollection).FindOne(ctx, filter).Decode(&device)
	if err != nil {
		return nil, err
	}

	return &device, nil
}

func (r *trustedDeviceMongoRepository) DeleteDevicesByUser(ctx context.Context, userID bson.ObjectID) error {
	_, err := r.db.Collection(trustedDeviceCollection).DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}
