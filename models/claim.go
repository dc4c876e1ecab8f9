// File: tigermeter/models/claim.go
package models

import "time"

// Claim ticket statuses.
const (
	ClaimStatusPending  = "pending"
	ClaimStatusClaimed  = "claimed"
	ClaimStatusRejected = "rejected"
)

// DeviceClaim is an ephemeral claim ticket binding a device to a user.
type DeviceClaim struct {
	Code            string    `bson:"code" json:"code"`
	DeviceID        string    `bson:"deviceId" json:"deviceId"`
	Mac             string    `bson:"mac" json:"mac"`
	FirmwareVersion string    `bson:"firmwareVersion,omitempty" json:"firmwareVersion,omitempty"`
	IP              string    `bson:"ip,omitempty" json:"ip,omitempty"`
	ExpiresAt       time.Time `bson:"expiresAt" json:"expiresAt"`
	Status          string    `bson:"status" json:"status"`
	UserID          string    `bson:"userId,omitempty" json:"userId,omitempty"`
	// SecretIssued marks that the one-shot device secret has been
	// revealed for this claim; it is never reset.
	SecretIssued bool      `bson:"secretIssued" json:"secretIssued"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
}

// IssueClaimRequest is the device-side claim issuance body.
type IssueClaimRequest struct {
	Mac             string `json:"mac" binding:"required"`
	FirmwareVersion string `json:"firmwareVersion"`
	Hmac            string `json:"hmac" binding:"required"`
	Timestamp       int64  `json:"timestamp" binding:"required"`
	IP              string `json:"ip"`
}

// IssueClaimResponse carries the short-lived human-facing claim code.
type IssueClaimResponse struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// PollClaimResponse reveals the device secret exactly once.
type PollClaimResponse struct {
	DeviceID     string    `json:"deviceId"`
	DeviceSecret string    `json:"deviceSecret"`
	DisplayHash  string    `json:"displayHash"`
	ExpiresAt    time.Time `json:"expiresAt"`
}
