package pendingRepo

import (
	"time"

	"tigermeter/models"
)

// PendingDeviceRepository defines persistence for unapproved devices.
type PendingDeviceRepository interface {
	// Upsert records an HMAC-valid claim attempt from an unknown MAC.
	// An existing pending row has its attemptCount incremented and its
	// lastSeen/ip/firmwareVersion refreshed; otherwise a new row is
	// created with attemptCount 1. Returns the resulting row.
	Upsert(mac, firmwareVersion, ip string, seenAt time.Time) (*models.PendingDevice, error)

	GetByID(id string) (*models.PendingDevice, error)
	ListPending() ([]models.PendingDevice, error)
	SetStatus(id, status string) error

	// DeleteProcessed removes approved/rejected rows older than the
	// given instant.
	DeleteProcessed(before time.Time) (int64, error)
}
