package claim

import (
	"fmt"
	"time"

	"tigermeter/models"
	"tigermeter/utils"

	"go.uber.org/zap"
)

// PollClaim is called by the unauthenticated device waiting for its
// claim to be attached. Once the claim is attached, the first poll
// issues the device secret; the plaintext is revealed exactly once and
// every later poll reports not found.
func (s *DefaultClaimService) PollClaim(code string) (*models.PollClaimResponse, error) {
	ticket, err := s.Claims.GetByCode(code)
	if err != nil {
		return nil, fmt.Errorf("failed to look up claim: %w", err)
	}
	if ticket == nil {
		return nil, ErrClaimNotFound
	}
	if time.Now().After(ticket.ExpiresAt) {
		return nil, ErrClaimExpired
	}
	if ticket.Status != models.ClaimStatusClaimed {
		return nil, StillPendingError{Status: ticket.Status}
	}
	if ticket.SecretIssued {
		// One-shot: the secret has already been revealed.
		return nil, ErrClaimNotFound
	}

	device, err := s.Devices.GetByID(ticket.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up device: %w", err)
	}
	if device == nil {
		return nil, ErrClaimNotFound
	}

	// Flip the one-shot flag before revealing: of two concurrent polls
	// only one wins the flip and receives the plaintext.
	consumed, err := s.Claims.ConsumeSecretIssued(code)
	if err != nil {
		return nil, fmt.Errorf("failed to consume claim: %w", err)
	}
	if !consumed {
		return nil, ErrClaimNotFound
	}

	plaintext, expiresAt, err := s.Secrets.IssueSecret(device.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue device secret: %w", err)
	}

	utils.GetLogger().Info("Device secret issued via claim",
		zap.String("deviceId", device.ID), zap.String("code", code))
	return &models.PollClaimResponse{
		DeviceID:     device.ID,
		DeviceSecret: plaintext,
		DisplayHash:  device.DisplayHash,
		ExpiresAt:    expiresAt,
	}, nil
}
