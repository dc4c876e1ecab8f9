package device

import (
	"fmt"

	deviceRepo "tigermeter/database/repository/device"
	"tigermeter/models"
	"tigermeter/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// GetOwnedDevice loads a device and enforces portal ownership.
func (s *DefaultDeviceService) GetOwnedDevice(deviceID, userID string) (*models.Device, error) {
	device, err := s.Repo.GetByID(deviceID)
	if err != nil {
		return nil, err
	}
	if device == nil {
		return nil, ErrDeviceNotFound
	}
	if device.UserID != userID {
		return nil, ErrForbidden
	}
	return device, nil
}

// ListByUser lists all devices owned by the given portal user.
func (s *DefaultDeviceService) ListByUser(userID string) ([]models.Device, error) {
	return s.Repo.ListByUser(userID)
}

// ListDevices lists devices matching an admin filter.
func (s *DefaultDeviceService) ListDevices(filter deviceRepo.DeviceFilter) ([]models.Device, error) {
	return s.Repo.List(filter)
}

// Revoke marks a device revoked (admin). Revocation is a hard
// override: a revoked device fails authentication regardless of its
// secrets' validity.
func (s *DefaultDeviceService) Revoke(deviceID string) error {
	device, err := s.Repo.GetByID(deviceID)
	if err != nil {
		return err
	}
	if device == nil {
		return ErrDeviceNotFound
	}
	if err := s.Repo.UpdateFields(deviceID, bson.M{"status": models.DeviceStatusRevoked}); err != nil {
		return err
	}
	s.invalidateAuthCache(deviceID)
	utils.GetLogger().Info("Device revoked", zap.String("deviceId", deviceID))
	return nil
}

// OwnerRevoke revokes a device on behalf of its owner and scrubs its
// secret and display material.
func (s *DefaultDeviceService) OwnerRevoke(deviceID, userID string) error {
	if _, err := s.GetOwnedDevice(deviceID, userID); err != nil {
		return err
	}
	set := bson.M{
		"status":                 models.DeviceStatusRevoked,
		"displayInstructionJson": "",
		"displayHash":            "",
		"currentSecretHash":      "",
		"previousSecretHash":     "",
	}
	if err := s.Repo.UpdateFields(deviceID, set); err != nil {
		return err
	}
	s.invalidateAuthCache(deviceID)
	utils.GetLogger().Info("Device revoked by owner",
		zap.String("deviceId", deviceID), zap.String("userId", userID))
	return nil
}

// Delete removes a device and its claim tickets.
func (s *DefaultDeviceService) Delete(deviceID string) error {
	device, err := s.Repo.GetByID(deviceID)
	if err != nil {
		return err
	}
	if device == nil {
		return ErrDeviceNotFound
	}
	if err := s.Claims.DeleteByDevice(deviceID); err != nil {
		return err
	}
	if err := s.Repo.Delete(deviceID); err != nil {
		return err
	}
	s.invalidateAuthCache(deviceID)
	return nil
}

// QueueFactoryReset flags an active device for a factory reset; the
// flag is consumed by the device's next heartbeat.
func (s *DefaultDeviceService) QueueFactoryReset(deviceID string) error {
	device, err := s.Repo.GetByID(deviceID)
	if err != nil {
		return err
	}
	if device == nil {
		return ErrDeviceNotFound
	}
	if device.Status != models.DeviceStatusActive {
		return ErrNotActive
	}
	return s.Repo.UpdateFields(deviceID, bson.M{"pendingFactoryReset": true})
}

// UpdateSettings applies an admin settings patch.
func (s *DefaultDeviceService) UpdateSettings(deviceID string, patch DeviceSettingsPatch) (*models.Device, error) {
	device, err := s.Repo.GetByID(deviceID)
	if err != nil {
		return nil, err
	}
	if device == nil {
		return nil, ErrDeviceNotFound
	}

	set := bson.M{}
	if patch.AutoUpdate != nil {
		set["autoUpdate"] = *patch.AutoUpdate
		device.AutoUpdate = *patch.AutoUpdate
	}
	if patch.DemoMode != nil {
		set["demoMode"] = *patch.DemoMode
		device.DemoMode = *patch.DemoMode
	}
	if len(set) == 0 {
		return nil, ErrEmptyPatch
	}
	if err := s.Repo.UpdateFields(deviceID, set); err != nil {
		return nil, err
	}
	return device, nil
}

// Provision creates a device directly, bypassing the approval queue.
// Intended for development environments only; the handler gates it.
func (s *DefaultDeviceService) Provision(mac, firmwareVersion string) (*models.Device, error) {
	norm := utils.NormalizeMac(mac)
	if norm == "" {
		return nil, fmt.Errorf("invalid mac format")
	}
	existing, err := s.Repo.GetByMac(norm)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDeviceExists
	}

	if firmwareVersion == "" {
		firmwareVersion = "dev-firmware"
	}
	device := &models.Device{
		ID:              uuid.New().String(),
		Mac:             norm,
		Status:          models.DeviceStatusAwaitingClaim,
		FirmwareVersion: firmwareVersion,
	}
	if err := s.Repo.Create(device); err != nil {
		return nil, err
	}
	return device, nil
}

// ListPendingDevices lists devices awaiting admin approval.
func (s *DefaultDeviceService) ListPendingDevices() ([]models.PendingDevice, error) {
	return s.Pending.ListPending()
}

// ApprovePendingDevice creates a real Device record for an approved
// pending device and marks the queue entry processed.
func (s *DefaultDeviceService) ApprovePendingDevice(id string) (*models.Device, error) {
	pending, err := s.Pending.GetByID(id)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return nil, ErrDeviceNotFound
	}
	if pending.Status != models.PendingStatusPending {
		return nil, ErrAlreadyProcessed
	}

	firmwareVersion := pending.FirmwareVersion
	if firmwareVersion == "" {
		firmwareVersion = "unknown"
	}
	device := &models.Device{
		ID:              uuid.New().String(),
		Mac:             pending.Mac,
		Status:          models.DeviceStatusAwaitingClaim,
		FirmwareVersion: firmwareVersion,
		IP:              pending.IP,
	}
	if err := s.Repo.Create(device); err != nil {
		return nil, err
	}
	if err := s.Pending.SetStatus(id, models.PendingStatusApproved); err != nil {
		return nil, err
	}

	utils.GetLogger().Info("Pending device approved",
		zap.String("pendingId", id), zap.String("deviceId", device.ID))
	return device, nil
}

// RejectPendingDevice marks a pending device rejected.
func (s *DefaultDeviceService) RejectPendingDevice(id string) error {
	pending, err := s.Pending.GetByID(id)
	if err != nil {
		return err
	}
	if pending == nil {
		return ErrDeviceNotFound
	}
	return s.Pending.SetStatus(id, models.PendingStatusRejected)
}
