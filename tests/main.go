package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"tigermeter/config"
	"tigermeter/database"
	"tigermeter/models"
	"tigermeter/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

// Seeds a demo device and prints signed portal tokens so a freshly
// provisioned environment can be exercised end to end.
func main() {
	config.LoadConfig()
	database.InitDB()

	client := database.MongoClient
	devicesColl := client.Database("tigermeter").Collection("devices")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	mac := utils.NormalizeMac("AA:BB:CC:DD:EE:FF")
	if mac == "" {
		log.Fatal("demo MAC failed normalization")
	}

	// Clear any previous seed run for the same MAC.
	if _, err := devicesColl.DeleteMany(ctx, bson.M{"mac": mac}); err != nil {
		log.Fatalf("Failed to clear seeded devices: %v", err)
	}

	now := time.Now()
	device := models.Device{
		ID:              uuid.New().String(),
		Mac:             mac,
		Status:          models.DeviceStatusAwaitingClaim,
		FirmwareVersion: "1.0.0",
		AutoUpdate:      true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if _, err := devicesColl.InsertOne(ctx, device); err != nil {
		log.Fatalf("Failed to insert demo device: %v", err)
	}

	userID := uuid.New().String()
	userToken, err := utils.GenerateToken(userID, utils.RoleUser, 24*time.Hour)
	if err != nil {
		log.Fatalf("Failed to sign user token: %v", err)
	}
	adminToken, err := utils.GenerateToken(uuid.New().String(), utils.RoleAdmin, 24*time.Hour)
	if err != nil {
		log.Fatalf("Failed to sign admin token: %v", err)
	}

	fmt.Printf("Seeded device %s (mac %s, status %s)\n", device.ID, device.Mac, device.Status)
	fmt.Printf("User token (sub %s):\n%s\n", userID, userToken)
	fmt.Printf("Admin token:\n%s\n", adminToken)
}
