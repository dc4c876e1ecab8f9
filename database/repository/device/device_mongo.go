package deviceRepo

import (
	"context"
	"fmt"
	"time"

	"tigermeter/database"
	"tigermeter/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDeviceRepo implements DeviceRepository using MongoDB.
type MongoDeviceRepo struct {
	coll *mongo.Collection
}

// NewMongoDeviceRepo creates a new instance of DeviceRepository using MongoDB.
func NewMongoDeviceRepo() DeviceRepository {
	coll := database.MongoClient.Database("tigermeter").Collection("devices")
	repo := &MongoDeviceRepo{coll: coll}

	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}

// newContext creates a context with the given timeout.
func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// ensureIndexes creates indexes for fields frequently used in queries.
func (r *MongoDeviceRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "mac", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "userId", Value: 1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// Create inserts a new device document.
func (r *MongoDeviceRepo) Create(device *models.Device) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	now := time.Now()
	device.CreatedAt = now
	device.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, device); err != nil {
		return fmt.Errorf("failed to create device: %w", err)
	}
	return nil
}

// GetByID retrieves a device by its unique ID. Returns nil if absent.
func (r *MongoDeviceRepo) GetByID(id string) (*models.Device, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var device models.Device
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&device); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch device with id %s: %w", id, err)
	}
	return &device, nil
}

// GetByMac retrieves a device by its canonical MAC. Returns nil if absent.
func (r *MongoDeviceRepo) GetByMac(mac string) (*models.Device, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var device models.Device
	if err := r.coll.FindOne(ctx, bson.M{"mac": mac}).Decode(&device); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch device with mac %s: %w", mac, err)
	}
	return &device, nil
}

// List retrieves devices matching the given filter.
func (r *MongoDeviceRepo) List(filter DeviceFilter) ([]models.Device, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	query := bson.M{}
	if filter.UserID != "" {
		query["userId"] = filter.UserID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	lastSeen := bson.M{}
	if filter.LastSeenBefore != nil {
		lastSeen["$lt"] = *filter.LastSeenBefore
	}
	if filter.LastSeenAfter != nil {
		lastSeen["$gt"] = *filter.LastSeenAfter
	}
	if len(lastSeen) > 0 {
		query["lastSeen"] = lastSeen
	}

	cursor, err := r.coll.Find(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer cursor.Close(ctx)

	var devices []models.Device
	for cursor.Next(ctx) {
		var d models.Device
		if err := cursor.Decode(&d); err != nil {
			return nil, fmt.Errorf("failed to decode device: %w", err)
		}
		devices = append(devices, d)
	}
	return devices, nil
}

// ListByUser retrieves all devices owned by the given user.
func (r *MongoDeviceRepo) ListByUser(userID string) ([]models.Device, error) {
	return r.List(DeviceFilter{UserID: userID})
}

// Update modifies an existing device document.
func (r *MongoDeviceRepo) Update(device *models.Device) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	device.UpdatedAt = time.Now()
	filter := bson.M{"id": device.ID}
	update := bson.M{"$set": device}

	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update device with id %s: %w", device.ID, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("device with id %s not found", device.ID)
	}
	return nil
}

// UpdateFields applies a partial $set update to a device document.
func (r *MongoDeviceRepo) UpdateFields(id string, set bson.M) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	set["updatedAt"] = time.Now()
	result, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update device with id %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("device with id %s not found", id)
	}
	return nil
}

// Delete removes a device document by its ID.
func (r *MongoDeviceRepo) Delete(id string) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	result, err := r.coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("failed to delete device with id %s: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("device with id %s not found", id)
	}
	return nil
}

// RotateSecret shifts the current secret pair into the previous slot
// and installs the new hash. A pipeline update keeps the shift atomic
// so a concurrent authenticate never observes a half-rotated pair.
func (r *MongoDeviceRepo) RotateSecret(id, newHash string, newExpiresAt time.Time) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	// Bcrypt hashes start with "$", which a pipeline $set would read as
	// a field path, so the new hash goes in as a $literal.
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"previousSecretHash":      "$currentSecretHash",
			"previousSecretExpiresAt": "$currentSecretExpiresAt",
			"currentSecretHash":       bson.M{"$literal": newHash},
			"currentSecretExpiresAt":  newExpiresAt,
			"updatedAt":               time.Now(),
		}}},
	}

	result, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, pipeline)
	if err != nil {
		return fmt.Errorf("failed to rotate secret for device %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("device with id %s not found", id)
	}
	return nil
}

// ConsumeFactoryReset atomically clears a pending factory-reset flag
// and refreshes lastSeen. Reports whether the flag was set.
func (r *MongoDeviceRepo) ConsumeFactoryReset(id string, seenAt time.Time) (bool, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{"id": id, "pendingFactoryReset": true}
	update := bson.M{"$set": bson.M{
		"pendingFactoryReset": false,
		"lastSeen":            seenAt,
		"updatedAt":           time.Now(),
	}}

	result := r.coll.FindOneAndUpdate(ctx, filter, update)
	if err := result.Err(); err != nil {
		if err == mongo.ErrNoDocuments {
			return false, nil
		}
		return false, fmt.Errorf("failed to consume factory reset for device %s: %w", id, err)
	}
	return true, nil
}
