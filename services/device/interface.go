package device

import (
	"time"

	claimRepo "tigermeter/database/repository/claim"
	deviceRepo "tigermeter/database/repository/device"
	pendingRepo "tigermeter/database/repository/pending"
	"tigermeter/models"

	"github.com/go-redis/redis/v8"
)

// DeviceSettingsPatch is the admin settings update body. Nil fields
// are left unchanged.
type DeviceSettingsPatch struct {
	AutoUpdate *bool `json:"autoUpdate,omitempty"`
	DemoMode   *bool `json:"demoMode,omitempty"`
}

// DeviceService manages device secrets, heartbeats, display state and
// administrative operations.
type DeviceService interface {
	// Secret manager.
	IssueSecret(deviceID string) (plaintext string, expiresAt time.Time, err error)
	Authenticate(deviceID, token string) (*models.Device, error)
	RefreshSecret(deviceID string) (*models.PollClaimResponse, error)

	// Display instruction cache protocol.
	Heartbeat(device *models.Device, req models.HeartbeatRequest) (*models.HeartbeatResponse, error)
	GetDisplayHash(device *models.Device) string
	GetDisplayFull(device *models.Device, ifHash string) (map[string]any, error)
	SetDisplay(deviceID, userID string, instruction *models.DisplayInstruction) (string, error)

	// Portal / admin operations.
	GetOwnedDevice(deviceID, userID string) (*models.Device, error)
	ListByUser(userID string) ([]models.Device, error)
	ListDevices(filter deviceRepo.DeviceFilter) ([]models.Device, error)
	Revoke(deviceID string) error
	OwnerRevoke(deviceID, userID string) error
	Delete(deviceID string) error
	QueueFactoryReset(deviceID string) error
	UpdateSettings(deviceID string, patch DeviceSettingsPatch) (*models.Device, error)
	Provision(mac, firmwareVersion string) (*models.Device, error)

	// Pending device approval queue.
	ListPendingDevices() ([]models.PendingDevice, error)
	ApprovePendingDevice(id string) (*models.Device, error)
	RejectPendingDevice(id string) error
}

// DefaultDeviceService is the production DeviceService implementation.
type DefaultDeviceService struct {
	Repo    deviceRepo.DeviceRepository
	Claims  claimRepo.ClaimRepository
	Pending pendingRepo.PendingDeviceRepository

	// AuthCache short-circuits bcrypt verification on the heartbeat
	// hot path. It may be nil; every cache failure falls back to bcrypt.
	AuthCache *redis.Client

	SecretPrefix          string
	SecretLength          int
	SecretTTL             time.Duration
	LatestFirmwareVersion int
	FirmwareDownloadURL   string
}
