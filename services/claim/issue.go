package claim

import (
	"fmt"
	"time"

	claimRepo "tigermeter/database/repository/claim"
	"tigermeter/models"
	"tigermeter/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// claimCodeRetries bounds regeneration attempts on a code collision.
const claimCodeRetries = 5

// IssueClaim verifies a device's proof of possession and issues a
// short-lived claim code. An HMAC-valid request for an unknown MAC is
// parked as a pending device instead of failing outright; a device
// that is not awaiting a claim is forced back into that state, which
// makes claim issuance an implicit re-claim trigger.
func (s *DefaultClaimService) IssueClaim(req models.IssueClaimRequest) (*models.IssueClaimResponse, error) {
	logger := utils.GetLogger()

	mac := utils.NormalizeMac(req.Mac)
	if mac == "" {
		return nil, ErrInvalidMac
	}

	// A stale-but-valid signature must be rejected as expired, not
	// accepted, so freshness is checked alongside the HMAC itself.
	now := time.Now()
	ts := time.UnixMilli(req.Timestamp)
	if ts.Before(now.Add(-s.HmacTolerance)) || ts.After(now.Add(s.HmacTolerance)) {
		return nil, ErrStaleTimestamp
	}
	if !utils.VerifyClaimHmac(s.HmacKey, mac, req.Hmac, req.FirmwareVersion, req.Timestamp) {
		return nil, ErrBadHmac
	}

	device, err := s.Devices.GetByMac(mac)
	if err != nil {
		return nil, fmt.Errorf("failed to look up device: %w", err)
	}
	if device == nil {
		// Proven genuine but unknown: queue for admin approval.
		pending, err := s.Pending.Upsert(mac, req.FirmwareVersion, req.IP, now)
		if err != nil {
			return nil, fmt.Errorf("failed to record pending device: %w", err)
		}
		logger.Info("Unknown device queued for approval",
			zap.String("mac", mac), zap.Int("attemptCount", pending.AttemptCount))
		return nil, ErrDeviceNotFound
	}

	if device.Status != models.DeviceStatusAwaitingClaim {
		set := bson.M{"status": models.DeviceStatusAwaitingClaim, "userId": ""}
		if err := s.Devices.UpdateFields(device.ID, set); err != nil {
			return nil, fmt.Errorf("failed to reset device for re-claim: %w", err)
		}
		logger.Info("Device forced back to awaiting_claim",
			zap.String("deviceId", device.ID), zap.String("previousStatus", device.Status))
	}

	expiresAt := now.Add(s.ClaimCodeTTL)
	for attempt := 0; attempt < claimCodeRetries; attempt++ {
		code, err := utils.GenerateClaimCode()
		if err != nil {
			return nil, err
		}
		ticket := &models.DeviceClaim{
			Code:            code,
			DeviceID:        device.ID,
			Mac:             mac,
			FirmwareVersion: req.FirmwareVersion,
			IP:              req.IP,
			ExpiresAt:       expiresAt,
			Status:          models.ClaimStatusPending,
		}
		if err := s.Claims.Create(ticket); err != nil {
			if claimRepo.IsDuplicateCode(err) {
				continue
			}
			return nil, fmt.Errorf("failed to create claim: %w", err)
		}
		return &models.IssueClaimResponse{Code: code, ExpiresAt: expiresAt}, nil
	}
	return nil, fmt.Errorf("failed to generate a unique claim code")
}
