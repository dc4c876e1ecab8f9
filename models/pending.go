// File: tigermeter/models/pending.go
package models

import "time"

// Pending device statuses.
const (
	PendingStatusPending  = "pending"
	PendingStatusApproved = "approved"
	PendingStatusRejected = "rejected"
)

// PendingDevice is a device that proved HMAC possession but has no
// matching Device record; it awaits admin approval.
type PendingDevice struct {
	ID              string    `bson:"id" json:"id"`
	Mac             string    `bson:"mac" json:"mac"`
	FirmwareVersion string    `bson:"firmwareVersion,omitempty" json:"firmwareVersion,omitempty"`
	IP              string    `bson:"ip,omitempty" json:"ip,omitempty"`
	FirstSeen       time.Time `bson:"firstSeen" json:"firstSeen"`
	LastSeen        time.Time `bson:"lastSeen" json:"lastSeen"`
	AttemptCount    int       `bson:"attemptCount" json:"attemptCount"`
	Status          string    `bson:"status" json:"status"`
}
