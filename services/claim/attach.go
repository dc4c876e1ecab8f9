package claim

import (
	"encoding/json"
	"fmt"
	"time"

	"tigermeter/models"
	"tigermeter/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// welcomeInstruction builds the greeting payload seeded onto a freshly
// claimed device, with its canonical content hash filled in.
func welcomeInstruction() (payloadJSON, hash string, err error) {
	payload := map[string]any{
		"version":       1,
		"symbol":        "★",
		"mainText":      "Welcome to TigerMeter",
		"bottomLine":    "Claimed successfully",
		"ledColor":      "green",
		"ledBrightness": "low",
	}
	hash, err = utils.InstructionHash(payload)
	if err != nil {
		return "", "", err
	}
	payload["hash"] = hash
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", "", err
	}
	return string(raw), hash, nil
}

// AttachClaim binds a claim code to an authenticated portal user,
// activating the device and seeding its welcome display instruction.
func (s *DefaultClaimService) AttachClaim(code, userID string) (string, error) {
	ticket, err := s.Claims.GetByCode(code)
	if err != nil {
		return "", fmt.Errorf("failed to look up claim: %w", err)
	}
	if ticket == nil {
		return "", ErrClaimNotFound
	}
	if time.Now().After(ticket.ExpiresAt) {
		return "", ErrClaimExpired
	}
	if ticket.Status == models.ClaimStatusClaimed {
		return "", ErrAlreadyClaimed
	}

	// The conditional update is the race guard: of two concurrent
	// attaches only one finds the ticket still pending.
	claimed, err := s.Claims.MarkClaimed(code, userID)
	if err != nil {
		return "", fmt.Errorf("failed to mark claim claimed: %w", err)
	}
	if !claimed {
		return "", ErrAlreadyClaimed
	}

	payloadJSON, hash, err := welcomeInstruction()
	if err != nil {
		return "", fmt.Errorf("failed to build welcome instruction: %w", err)
	}
	set := bson.M{
		"status":                 models.DeviceStatusActive,
		"userId":                 userID,
		"displayInstructionJson": payloadJSON,
		"displayHash":            hash,
		"displayVersion":         1,
	}
	if err := s.Devices.UpdateFields(ticket.DeviceID, set); err != nil {
		return "", fmt.Errorf("failed to activate device: %w", err)
	}

	utils.GetLogger().Info("Device claimed",
		zap.String("deviceId", ticket.DeviceID), zap.String("userId", userID))
	return ticket.DeviceID, nil
}
