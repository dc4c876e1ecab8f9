package deviceRepo

import (
	"time"

	"tigermeter/models"

	"go.mongodb.org/mongo-driver/bson"
)

// DeviceFilter narrows admin device listings.
type DeviceFilter struct {
	UserID         string
	Status         string
	LastSeenBefore *time.Time
	LastSeenAfter  *time.Time
}

// DeviceRepository defines the persistence operations for devices.
type DeviceRepository interface {
	Create(device *models.Device) error
	GetByID(id string) (*models.Device, error)
	GetByMac(mac string) (*models.Device, error)
	List(filter DeviceFilter) ([]models.Device, error)
	ListByUser(userID string) ([]models.Device, error)
	Update(device *models.Device) error
	UpdateFields(id string, set bson.M) error
	Delete(id string) error

	// RotateSecret shifts the current secret pair into the previous
	// slot and installs the new hash in one atomic update.
	RotateSecret(id, newHash string, newExpiresAt time.Time) error

	// ConsumeFactoryReset atomically clears a pending factory-reset
	// flag. It reports whether the flag was set.
	ConsumeFactoryReset(id string, seenAt time.Time) (bool, error)
}
