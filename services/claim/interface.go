package claim

import (
	"time"

	claimRepo "tigermeter/database/repository/claim"
	deviceRepo "tigermeter/database/repository/device"
	pendingRepo "tigermeter/database/repository/pending"
	"tigermeter/models"
)

// SecretIssuer issues a fresh device secret, returning the plaintext
// (revealed exactly once) and its expiry. Implemented by the device
// secret manager.
type SecretIssuer interface {
	IssueSecret(deviceID string) (plaintext string, expiresAt time.Time, err error)
}

// ClaimService governs the device claim lifecycle.
type ClaimService interface {
	IssueClaim(req models.IssueClaimRequest) (*models.IssueClaimResponse, error)
	AttachClaim(code, userID string) (deviceID string, err error)
	PollClaim(code string) (*models.PollClaimResponse, error)
	GetClaim(code string) (*models.DeviceClaim, error)
}

// DefaultClaimService is the production ClaimService implementation.
type DefaultClaimService struct {
	Devices deviceRepo.DeviceRepository
	Claims  claimRepo.ClaimRepository
	Pending pendingRepo.PendingDeviceRepository
	Secrets SecretIssuer

	// Deployment-wide claim HMAC key and freshness window.
	HmacKey       string
	HmacTolerance time.Duration
	ClaimCodeTTL  time.Duration
}

// GetClaim returns a claim ticket by code (admin lookup).
func (s *DefaultClaimService) GetClaim(code string) (*models.DeviceClaim, error) {
	c, err := s.Claims.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrClaimNotFound
	}
	return c, nil
}
