package claimRepo

import (
	"time"

	"tigermeter/models"
)

// ClaimRepository defines the persistence operations for claim tickets.
type ClaimRepository interface {
	Create(claim *models.DeviceClaim) error
	GetByCode(code string) (*models.DeviceClaim, error)

	// MarkClaimed transitions a pending claim to claimed and binds the
	// user. Reports false if the claim was not in the pending state.
	MarkClaimed(code, userID string) (bool, error)

	// ConsumeSecretIssued atomically flips the one-shot secretIssued
	// flag on a claimed ticket. Reports false if the flag was already
	// set or the claim is not claimed.
	ConsumeSecretIssued(code string) (bool, error)

	DeleteByDevice(deviceID string) error

	// DeleteExpired removes claim tickets whose expiry passed before
	// the given instant. Returns the number of removed tickets.
	DeleteExpired(before time.Time) (int64, error)
}
