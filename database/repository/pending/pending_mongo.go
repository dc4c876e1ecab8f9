package pendingRepo

import (
	"context"
	"fmt"
	"time"

	"tigermeter/database"
	"tigermeter/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoPendingDeviceRepo implements PendingDeviceRepository using MongoDB.
type MongoPendingDeviceRepo struct {
	coll *mongo.Collection
}

// NewMongoPendingDeviceRepo creates a new instance of PendingDeviceRepository using MongoDB.
func NewMongoPendingDeviceRepo() PendingDeviceRepository {
	coll := database.MongoClient.Database("tigermeter").Collection("pendingDevices")
	repo := &MongoPendingDeviceRepo{coll: coll}

	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}

// newContext creates a context with the given timeout.
func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func (r *MongoPendingDeviceRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "mac", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "lastSeen", Value: -1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// Upsert records an HMAC-valid claim attempt from an unknown MAC.
func (r *MongoPendingDeviceRepo) Upsert(mac, firmwareVersion, ip string, seenAt time.Time) (*models.PendingDevice, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{"mac": mac, "status": models.PendingStatusPending}
	set := bson.M{"lastSeen": seenAt}
	if firmwareVersion != "" {
		set["firmwareVersion"] = firmwareVersion
	}
	if ip != "" {
		set["ip"] = ip
	}
	update := bson.M{
		"$set": set,
		"$inc": bson.M{"attemptCount": 1},
		"$setOnInsert": bson.M{
			"id":        uuid.New().String(),
			"mac":       mac,
			"firstSeen": seenAt,
			"status":    models.PendingStatusPending,
		},
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var pending models.PendingDevice
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&pending); err != nil {
		return nil, fmt.Errorf("failed to upsert pending device %s: %w", mac, err)
	}
	return &pending, nil
}

// GetByID retrieves a pending device by ID. Returns nil if absent.
func (r *MongoPendingDeviceRepo) GetByID(id string) (*models.PendingDevice, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var pending models.PendingDevice
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&pending); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch pending device with id %s: %w", id, err)
	}
	return &pending, nil
}

// ListPending retrieves unprocessed rows, most recently seen first.
func (r *MongoPendingDeviceRepo) ListPending() ([]models.PendingDevice, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "lastSeen", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"status": models.PendingStatusPending}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending devices: %w", err)
	}
	defer cursor.Close(ctx)

	var pendings []models.PendingDevice
	for cursor.Next(ctx) {
		var p models.PendingDevice
		if err := cursor.Decode(&p); err != nil {
			return nil, fmt.Errorf("failed to decode pending device: %w", err)
		}
		pendings = append(pendings, p)
	}
	return pendings, nil
}

// SetStatus updates the processing status of a pending device.
func (r *MongoPendingDeviceRepo) SetStatus(id, status string) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	result, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return fmt.Errorf("failed to update pending device %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("pending device with id %s not found", id)
	}
	return nil
}

// DeleteProcessed removes approved/rejected rows older than the given instant.
func (r *MongoPendingDeviceRepo) DeleteProcessed(before time.Time) (int64, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	filter := bson.M{
		"status":   bson.M{"$ne": models.PendingStatusPending},
		"lastSeen": bson.M{"$lt": before},
	}
	result, err := r.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to delete processed pending devices: %w", err)
	}
	return result.DeletedCount, nil
}
