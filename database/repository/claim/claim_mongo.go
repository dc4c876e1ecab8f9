package claimRepo

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

// MongoClaimRepo implements ClaimRepository using MongoDB.
type MongoClaimRepo struct {
	coll *mongo.Collection
}

// NewMongoClaimRepo creates a new instance of ClaimRepository using MongoDB.
func NewMongoClaimRepo() ClaimRepository {
	coll := database.MongoClient.Database("tigermeter").Collection("deviceClaims")
	repo := &MongoClaimRepo{coll: coll}

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
// The unique code index backs collision detection at issue time.
func (r *MongoClaimRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "deviceId", Value: 1}}},
		{Keys: bson.D{{Key: "expiresAt", Value: 1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// IsDuplicateCode reports whether an insert failed on the unique code index.
func IsDuplicateCode(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

// Create inserts a new claim ticket.
func (r *MongoClaimRepo) Create(claim *models.DeviceClaim) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	claim.CreatedAt = time.Now()
	if _, err := r.coll.InsertOne(ctx, claim); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return err
		}
		return fmt.Errorf("failed to create claim: %w", err)
	}
	return nil
}

// GetByCode retrieves a claim ticket by its code. Returns nil if absent.
func (r *MongoClaimRepo) GetByCode(code string) (*models.DeviceClaim, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var claim models.DeviceClaim
	if err := r.coll.FindOne(ctx, bson.M{"code": code}).Decode(&claim); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch claim with code %s: %w", code, err)
	}
	return &claim, nil
}

// MarkClaimed transitions a pending claim to claimed and binds the user.
func (r *MongoClaimRepo) MarkClaimed(code, userID string) (bool, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{"code": code, "status": models.ClaimStatusPending}
	update := bson.M{"$set": bson.M{"status": models.ClaimStatusClaimed, "userId": userID}}

	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to mark claim %s claimed: %w", code, err)
	}
	return result.MatchedCount > 0, nil
}

// ConsumeSecretIssued atomically flips the one-shot secretIssued flag.
func (r *MongoClaimRepo) ConsumeSecretIssued(code string) (bool, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{"code": code, "status": models.ClaimStatusClaimed, "secretIssued": false}
	update := bson.M{"$set": bson.M{"secretIssued": true}}

	result := r.coll.FindOneAndUpdate(ctx, filter, update)
	if err := result.Err(); err != nil {
		if err == mongo.ErrNoDocuments {
			return false, nil
		}
		return false, fmt.Errorf("failed to consume secret issuance for claim %s: %w", code, err)
	}
	return true, nil
}

// DeleteByDevice removes all claim tickets for the given device.
func (r *MongoClaimRepo) DeleteByDevice(deviceID string) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	if _, err := r.coll.DeleteMany(ctx, bson.M{"deviceId": deviceID}); err != nil {
		return fmt.Errorf("failed to delete claims for device %s: %w", deviceID, err)
	}
	return nil
}

// DeleteExpired removes claim tickets whose expiry passed before the given instant.
func (r *MongoClaimRepo) DeleteExpired(before time.Time) (int64, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	result, err := r.coll.DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lt": before}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired claims: %w", err)
	}
	return result.DeletedCount, nil
}
