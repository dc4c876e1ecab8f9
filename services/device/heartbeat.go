package device

import (
	"encoding/json"
	"fmt"
	"time"

	"tigermeter/models"
	"tigermeter/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// oneTimeActionFields are directives meant to fire exactly once on the
// device. They are stripped from the stored payload after delivery
// without touching the stored display hash, so clearing them does not
// force the device to re-fetch.
var oneTimeActionFields = []string{"beep", "flashCount"}

// Heartbeat processes a device's periodic report. A queued factory
// reset preempts everything else; otherwise telemetry is folded in and
// the display cache protocol decides whether to ship the instruction.
func (s *DefaultDeviceService) Heartbeat(device *models.Device, req models.HeartbeatRequest) (*models.HeartbeatResponse, error) {
	now := time.Now()

	reset, err := s.Repo.ConsumeFactoryReset(device.ID, now)
	if err != nil {
		return nil, err
	}
	if reset {
		utils.GetLogger().Info("Factory reset delivered", zap.String("deviceId", device.ID))
		return &models.HeartbeatResponse{FactoryReset: true}, nil
	}

	// Telemetry is last-write-wins; absent fields keep prior values.
	set := bson.M{"lastSeen": now}
	if req.Battery != nil {
		set["battery"] = *req.Battery
	}
	if req.Rssi != nil {
		set["rssi"] = *req.Rssi
	}
	if req.IP != "" {
		set["ip"] = req.IP
	}
	if req.FirmwareVersion != "" {
		set["firmwareVersion"] = req.FirmwareVersion
	}
	if err := s.Repo.UpdateFields(device.ID, set); err != nil {
		return nil, err
	}

	resp := &models.HeartbeatResponse{
		OK:                    true,
		AutoUpdate:            device.AutoUpdate,
		DemoMode:              device.DemoMode,
		LatestFirmwareVersion: s.LatestFirmwareVersion,
		FirmwareDownloadURL:   s.FirmwareDownloadURL,
	}

	// Cache hit: device already renders the current content.
	if req.DisplayHash != "" && device.DisplayHash != "" && req.DisplayHash == device.DisplayHash {
		return resp, nil
	}

	if device.DisplayInstructionJSON != "" && device.DisplayHash != "" {
		var instruction map[string]any
		if err := json.Unmarshal([]byte(device.DisplayInstructionJSON), &instruction); err != nil {
			return nil, fmt.Errorf("failed to decode stored instruction for device %s: %w", device.ID, err)
		}

		if err := s.clearOneTimeActions(device.ID, instruction); err != nil {
			utils.GetLogger().Error("Failed to clear one-time actions", zap.Error(err))
		}

		resp.Instruction = instruction
		resp.DisplayHash = device.DisplayHash
		return resp, nil
	}

	return resp, nil
}

// clearOneTimeActions persists the stored payload without its one-time
// directives after they have been delivered once. The stored hash is
// deliberately left unchanged.
func (s *DefaultDeviceService) clearOneTimeActions(deviceID string, instruction map[string]any) error {
	dirty := false
	cleaned := make(map[string]any, len(instruction))
	for k, v := range instruction {
		cleaned[k] = v
	}
	for _, field := range oneTimeActionFields {
		if _, ok := cleaned[field]; ok {
			delete(cleaned, field)
			dirty = true
		}
	}
	if !dirty {
		return nil
	}
	raw, err := json.Marshal(cleaned)
	if err != nil {
		return err
	}
	return s.Repo.UpdateFields(deviceID, bson.M{"displayInstructionJson": string(raw)})
}
