package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"tigermeter/models"
	"tigermeter/services/device"
	"tigermeter/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PortalHandler exposes the end-user portal endpoints.
type PortalHandler struct {
	Service device.DeviceService
}

// NewPortalHandler creates a PortalHandler.
func NewPortalHandler(svc device.DeviceService) *PortalHandler {
	return &PortalHandler{Service: svc}
}

func contextUserID(c *gin.Context) string {
	if v, exists := c.Get("userID"); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// ListOwnDevicesHandler handles GET /portal/devices.
func (h *PortalHandler) ListOwnDevicesHandler(c *gin.Context) {
	logger := getLogger(c)

	userID := contextUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	devices, err := h.Service.ListByUser(userID)
	if err != nil {
		logger.Error("Failed to list devices", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "internal_error", "failed to list devices")
		return
	}

	summaries := make([]gin.H, 0, len(devices))
	for _, d := range devices {
		summaries = append(summaries, gin.H{
			"id":       d.ID,
			"status":   d.Status,
			"lastSeen": d.LastSeen,
		})
	}
	c.JSON(http.StatusOK, summaries)
}

// GetOwnDeviceHandler handles GET /portal/devices/:id.
func (h *PortalHandler) GetOwnDeviceHandler(c *gin.Context) {
	logger := getLogger(c)

	userID := contextUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	d, err := h.Service.GetOwnedDevice(c.Param("id"), userID)
	if err != nil {
		switch {
		case errors.Is(err, device.ErrDeviceNotFound):
			utils.JSONError(c, http.StatusNotFound, "not_found", "")
		case errors.Is(err, device.ErrForbidden):
			utils.JSONError(c, http.StatusForbidden, "forbidden", "")
		default:
			logger.Error("Failed to fetch device", zap.Error(err))
			utils.JSONError(c, http.StatusInternalServerError, "internal_error", "failed to fetch device")
		}
		return
	}

	var displayInstruction map[string]any
	if d.DisplayInstructionJSON != "" {
		// Stored payloads are server-written; a decode failure here is
		// tolerated and the field simply omitted.
		_ = json.Unmarshal([]byte(d.DisplayInstructionJSON), &displayInstruction)
	}

	c.JSON(http.StatusOK, gin.H{
		"id":                 d.ID,
		"status":             d.Status,
		"lastSeen":           d.LastSeen,
		"mac":                d.Mac,
		"userId":             d.UserID,
		"battery":            d.Battery,
		"secretExpiresAt":    d.CurrentSecretExpiresAt,
		"displayHash":        d.DisplayHash,
		"displayInstruction": displayInstruction,
	})
}

// OwnerRevokeHandler handles POST /portal/devices/:id/revoke.
func (h *PortalHandler) OwnerRevokeHandler(c *gin.Context) {
	logger := getLogger(c)

	userID := contextUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.Service.OwnerRevoke(c.Param("id"), userID); err != nil {
		switch {
		case errors.Is(err, device.ErrDeviceNotFound):
			utils.JSONError(c, http.StatusNotFound, "not_found", "")
		case errors.Is(err, device.ErrForbidden):
			utils.JSONError(c, http.StatusForbidden, "forbidden", "")
		default:
			logger.Error("Failed to revoke device", zap.Error(err))
			utils.JSONError(c, http.StatusInternalServerError, "internal_error", "failed to revoke device")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.DeviceStatusRevoked})
}

// SetDisplayHandler handles PUT /portal/devices/:id/display.
func (h *PortalHandler) SetDisplayHandler(c *gin.Context) {
	logger := getLogger(c)

	userID := contextUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var instruction models.DisplayInstruction
	if err := c.ShouldBindJSON(&instruction); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	hash, err := h.Service.SetDisplay(c.Param("id"), userID, &instruction)
	if err != nil {
		var mismatch device.HashMismatchError
		switch {
		case errors.As(err, &mismatch):
			// The expected hash is surfaced so clients can debug their
			// canonicalization; it contains no secret material.
			c.JSON(http.StatusBadRequest, gin.H{"message": "Hash mismatch", "expected": mismatch.Expected})
		case errors.Is(err, device.ErrDeviceNotFound):
			utils.JSONError(c, http.StatusNotFound, "not_found", "")
		case errors.Is(err, device.ErrForbidden):
			utils.JSONError(c, http.StatusForbidden, "forbidden", "")
		default:
			logger.Warn("Display update rejected", zap.Error(err))
			utils.JSONError(c, http.StatusBadRequest, "invalid_instruction", err.Error())
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"displayHash": hash})
}
