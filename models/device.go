// File: tigermeter/models/device.go
package models

import "time"

// Device lifecycle statuses.
const (
	DeviceStatusAwaitingClaim = "awaiting_claim"
	DeviceStatusActive        = "active"
	DeviceStatusRevoked       = "revoked"
)

// Device is one physical TigerMeter unit.
type Device struct {
	ID     string `bson:"id" json:"id"`
	Mac    string `bson:"mac" json:"mac"`
	UserID string `bson:"userId,omitempty" json:"userId,omitempty"`
	Status string `bson:"status" json:"status"`

	// Secret material. Hashes are one-way; plaintext is never stored.
	CurrentSecretHash       string     `bson:"currentSecretHash,omitempty" json:"-"`
	CurrentSecretExpiresAt  *time.Time `bson:"currentSecretExpiresAt,omitempty" json:"-"`
	PreviousSecretHash      string     `bson:"previousSecretHash,omitempty" json:"-"`
	PreviousSecretExpiresAt *time.Time `bson:"previousSecretExpiresAt,omitempty" json:"-"`

	// Telemetry snapshot, overwritten on each heartbeat.
	LastSeen        *time.Time `bson:"lastSeen,omitempty" json:"lastSeen,omitempty"`
	Battery         *int       `bson:"battery,omitempty" json:"battery,omitempty"`
	Rssi            *int       `bson:"rssi,omitempty" json:"rssi,omitempty"`
	IP              string     `bson:"ip,omitempty" json:"ip,omitempty"`
	FirmwareVersion string     `bson:"firmwareVersion,omitempty" json:"firmwareVersion,omitempty"`

	// Display state.
	DisplayInstructionJSON string `bson:"displayInstructionJson,omitempty" json:"-"`
	DisplayHash            string `bson:"displayHash,omitempty" json:"displayHash,omitempty"`
	DisplayVersion         int    `bson:"displayVersion" json:"displayVersion"`
	PendingFactoryReset    bool   `bson:"pendingFactoryReset" json:"pendingFactoryReset"`

	// Admin-controlled settings.
	AutoUpdate bool `bson:"autoUpdate" json:"autoUpdate"`
	DemoMode   bool `bson:"demoMode" json:"demoMode"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
