package device

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"tigermeter/models"
	"tigermeter/utils"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// tokenDigest is the cache representation of a presented secret. Only
// the digest is ever stored, never the secret itself.
func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// authCacheKey names a verification cache entry per device and token
// digest, so both secrets of an overlap window cache independently.
func authCacheKey(deviceID, digest string) string {
	return utils.DeviceAuthCachePrefix + deviceID + ":" + digest
}

// IssueSecret generates a fresh device secret and rotates it in: the
// current hash pair shifts into the previous slot so the device can
// still authenticate with its old secret until that slot expires.
// The plaintext is returned once and never retrievable again.
func (s *DefaultDeviceService) IssueSecret(deviceID string) (string, time.Time, error) {
	plaintext, err := utils.GenerateDeviceSecret(s.SecretPrefix, s.SecretLength)
	if err != nil {
		return "", time.Time{}, err
	}
	hashed, err := utils.HashSecret(plaintext)
	if err != nil {
		return "", time.Time{}, err
	}

	expiresAt := time.Now().Add(s.SecretTTL)
	if err := s.Repo.RotateSecret(deviceID, hashed, expiresAt); err != nil {
		return "", time.Time{}, err
	}
	s.invalidateAuthCache(deviceID)

	utils.GetLogger().Info("Device secret rotated", zap.String("deviceId", deviceID))
	return plaintext, expiresAt, nil
}

// RefreshSecret rotates the secret of an already-authenticated device
// and returns the new plaintext alongside the current display hash.
func (s *DefaultDeviceService) RefreshSecret(deviceID string) (*models.PollClaimResponse, error) {
	device, err := s.Repo.GetByID(deviceID)
	if err != nil {
		return nil, err
	}
	if device == nil {
		return nil, ErrDeviceNotFound
	}

	plaintext, expiresAt, err := s.IssueSecret(deviceID)
	if err != nil {
		return nil, err
	}
	return &models.PollClaimResponse{
		DeviceID:     deviceID,
		DeviceSecret: plaintext,
		DisplayHash:  device.DisplayHash,
		ExpiresAt:    expiresAt,
	}, nil
}

// Authenticate validates a device bearer secret against the current
// and previous hashes independently; either slot accepts if its own
// expiry is in the future. Revocation overrides secret validity.
func (s *DefaultDeviceService) Authenticate(deviceID, token string) (*models.Device, error) {
	device, err := s.Repo.GetByID(deviceID)
	if err != nil {
		return nil, err
	}
	if device == nil {
		return nil, ErrDeviceNotFound
	}
	if device.Status == models.DeviceStatusRevoked {
		return nil, ErrDeviceRevoked
	}

	now := time.Now()
	digest := tokenDigest(token)
	if s.authCacheHit(deviceID, digest, now) {
		return device, nil
	}

	validCurrent := device.CurrentSecretExpiresAt != nil && device.CurrentSecretExpiresAt.After(now) &&
		utils.VerifySecret(token, device.CurrentSecretHash)
	validPrevious := device.PreviousSecretExpiresAt != nil && device.PreviousSecretExpiresAt.After(now) &&
		utils.VerifySecret(token, device.PreviousSecretHash)

	switch {
	case validCurrent:
		s.storeAuthCache(deviceID, digest, *device.CurrentSecretExpiresAt)
	case validPrevious:
		s.storeAuthCache(deviceID, digest, *device.PreviousSecretExpiresAt)
	default:
		return nil, ErrUnauthorized
	}
	return device, nil
}

// authCacheHit checks the verification cache. The cached value is the
// matched secret's own expiry, re-checked on every hit so an entry can
// never vouch past the secret it stands for. Any cache error is a miss
// so bcrypt remains the source of truth.
func (s *DefaultDeviceService) authCacheHit(deviceID, digest string, now time.Time) bool {
	if s.AuthCache == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := authCacheKey(deviceID, digest)
	cached, err := s.AuthCache.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			utils.GetLogger().Warn("Device auth cache lookup failed", zap.Error(err))
		}
		return false
	}
	expiresMillis, err := strconv.ParseInt(cached, 10, 64)
	if err != nil || !time.UnixMilli(expiresMillis).After(now) {
		_ = s.AuthCache.Del(ctx, key).Err()
		return false
	}
	return true
}

// storeAuthCache records a successful verification. The entry's TTL is
// capped at the matched secret's expiry so the cache cannot outlive it.
func (s *DefaultDeviceService) storeAuthCache(deviceID, digest string, expiresAt time.Time) {
	if s.AuthCache == nil {
		return
	}
	ttl := utils.DeviceAuthCacheTTL
	if until := time.Until(expiresAt); until < ttl {
		ttl = until
	}
	if ttl <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := authCacheKey(deviceID, digest)
	value := strconv.FormatInt(expiresAt.UnixMilli(), 10)
	if err := s.AuthCache.Set(ctx, key, value, ttl).Err(); err != nil {
		utils.GetLogger().Warn("Failed to store device auth cache", zap.Error(err))
	}
}

// invalidateAuthCache drops every cached verification for the device.
// Keys carry the token digest, so this walks the device's keyspace.
func (s *DefaultDeviceService) invalidateAuthCache(deviceID string) {
	if s.AuthCache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	iter := s.AuthCache.Scan(ctx, 0, utils.DeviceAuthCachePrefix+deviceID+":*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.AuthCache.Del(ctx, iter.Val()).Err(); err != nil {
			utils.GetLogger().Warn("Failed to invalidate device auth cache", zap.Error(err))
		}
	}
	if err := iter.Err(); err != nil {
		utils.GetLogger().Warn("Device auth cache scan failed", zap.Error(err))
	}
}
