package device

import (
	"encoding/json"
	"fmt"

	"tigermeter/models"
	"tigermeter/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// GetDisplayHash returns the device's current display content hash.
func (s *DefaultDeviceService) GetDisplayHash(device *models.Device) string {
	return device.DisplayHash
}

// GetDisplayFull returns the full stored instruction. If ifHash
// matches the stored hash the caller's copy is current and
// ErrNotModified is returned; with no instruction set at all,
// ErrNoInstruction.
func (s *DefaultDeviceService) GetDisplayFull(device *models.Device, ifHash string) (map[string]any, error) {
	if device.DisplayInstructionJSON == "" {
		return nil, ErrNoInstruction
	}
	if ifHash != "" && device.DisplayHash != "" && ifHash == device.DisplayHash {
		return nil, ErrNotModified
	}
	var instruction map[string]any
	if err := json.Unmarshal([]byte(device.DisplayInstructionJSON), &instruction); err != nil {
		return nil, fmt.Errorf("failed to decode stored instruction for device %s: %w", device.ID, err)
	}
	return instruction, nil
}

// SetDisplay installs a new display instruction on an owned device.
// The client must supply a hash matching the server's canonical
// recomputation; this forces display-writing clients to prove they
// implement the canonicalization rules before the payload can reach a
// device.
func (s *DefaultDeviceService) SetDisplay(deviceID, userID string, instruction *models.DisplayInstruction) (string, error) {
	device, err := s.GetOwnedDevice(deviceID, userID)
	if err != nil {
		return "", err
	}

	if err := instruction.Validate(); err != nil {
		return "", err
	}

	computed, err := utils.InstructionHash(instruction)
	if err != nil {
		return "", fmt.Errorf("failed to hash instruction: %w", err)
	}
	if instruction.Hash != computed {
		return "", HashMismatchError{Expected: computed}
	}

	raw, err := json.Marshal(instruction)
	if err != nil {
		return "", fmt.Errorf("failed to encode instruction: %w", err)
	}
	set := bson.M{
		"displayInstructionJson": string(raw),
		"displayHash":            computed,
		"displayVersion":         device.DisplayVersion + 1,
	}
	if err := s.Repo.UpdateFields(deviceID, set); err != nil {
		return "", err
	}

	utils.GetLogger().Info("Display instruction updated",
		zap.String("deviceId", deviceID), zap.String("displayHash", computed))
	return computed, nil
}
