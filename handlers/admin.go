package handlers

import (
	"errors"
	"net/http"
	"time"

	deviceRepo "tigermeter/database/repository/device"
	"tigermeter/services/claim"
	"tigermeter/services/device"
	"tigermeter/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler exposes admin-role-gated device management endpoints.
type AdminHandler struct {
	Devices device.DeviceService
	Claims  claim.ClaimService
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(devices device.DeviceService, claims claim.ClaimService) *AdminHandler {
	return &AdminHandler{Devices: devices, Claims: claims}
}

// ListDevicesHandler handles GET /admin/devices with optional filters.
func (h *AdminHandler) ListDevicesHandler(c *gin.Context) {
	logger := getLogger(c)

	filter := deviceRepo.DeviceFilter{
		UserID: c.Query("userId"),
		Status: c.Query("status"),
	}
	if v := c.Query("lastSeenBefore"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "invalid_filter", "lastSeenBefore must be RFC3339")
			return
		}
		filter.LastSeenBefore = &t
	}
	if v := c.Query("lastSeenAfter"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "invalid_filter", "lastSeenAfter must be RFC3339")
			return
		}
		filter.LastSeenAfter = &t
	}

	devices, err := h.Devices.ListDevices(filter)
	if err != nil {
		logger.Error("Failed to list devices", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "internal_error", "failed to list devices")
		return
	}

	out := make([]gin.H, 0, len(devices))
	for _, d := range devices {
		out = append(out, gin.H{
			"id":               d.ID,
			"mac":              d.Mac,
			"userId":           d.UserID,
			"status":           d.Status,
			"lastSeen":         d.LastSeen,
			"deviceSecretHash": d.CurrentSecretHash,
			"createdAt":        d.CreatedAt,
			"displayHash":      d.DisplayHash,
			"battery":          d.Battery,
			"firmwareVersion":  d.FirmwareVersion,
			"autoUpdate":       d.AutoUpdate,
			"demoMode":         d.DemoMode,
		})
	}
	c.JSON(http.StatusOK, out)
}

// RevokeDeviceHandler handles POST /admin/devices/:id/revoke.
func (h *AdminHandler) RevokeDeviceHandler(c *gin.Context) {
	if err := h.Devices.Revoke(c.Param("id")); err != nil {
		h.respondDeviceError(c, err, "failed to revoke device")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "revoked"})
}

// DeleteDeviceHandler handles DELETE /admin/devices/:id.
func (h *AdminHandler) DeleteDeviceHandler(c *gin.Context) {
	if err := h.Devices.Delete(c.Param("id")); err != nil {
		h.respondDeviceError(c, err, "failed to delete device")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// FactoryResetHandler handles POST /admin/devices/:id/factory-reset.
func (h *AdminHandler) FactoryResetHandler(c *gin.Context) {
	if err := h.Devices.QueueFactoryReset(c.Param("id")); err != nil {
		if errors.Is(err, device.ErrNotActive) {
			utils.JSONError(c, http.StatusBadRequest, "not_active", "device must be active to queue factory reset")
			return
		}
		h.respondDeviceError(c, err, "failed to queue factory reset")
		return
	}
	c.JSON(http.StatusOK, gin.H{"queued": true})
}

// UpdateSettingsHandler handles PATCH /admin/devices/:id/settings.
func (h *AdminHandler) UpdateSettingsHandler(c *gin.Context) {
	var patch device.DeviceSettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	d, err := h.Devices.UpdateSettings(c.Param("id"), patch)
	if err != nil {
		if errors.Is(err, device.ErrEmptyPatch) {
			utils.JSONError(c, http.StatusBadRequest, "empty_patch", "no settings to update")
			return
		}
		h.respondDeviceError(c, err, "failed to update settings")
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": d.ID, "autoUpdate": d.AutoUpdate, "demoMode": d.DemoMode})
}

// GetClaimHandler handles GET /admin/device-claims/:code.
func (h *AdminHandler) GetClaimHandler(c *gin.Context) {
	ticket, err := h.Claims.GetClaim(c.Param("code"))
	if err != nil {
		if errors.Is(err, claim.ErrClaimNotFound) {
			utils.JSONError(c, http.StatusNotFound, "not_found", "")
			return
		}
		getLogger(c).Error("Failed to fetch claim", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "internal_error", "failed to fetch claim")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":      ticket.Code,
		"status":    ticket.Status,
		"deviceId":  ticket.DeviceID,
		"mac":       ticket.Mac,
		"expiresAt": ticket.ExpiresAt,
	})
}

// ListPendingDevicesHandler handles GET /admin/pending-devices.
func (h *AdminHandler) ListPendingDevicesHandler(c *gin.Context) {
	pendings, err := h.Devices.ListPendingDevices()
	if err != nil {
		getLogger(c).Error("Failed to list pending devices", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "internal_error", "failed to list pending devices")
		return
	}
	c.JSON(http.StatusOK, pendings)
}

// ApprovePendingDeviceHandler handles POST /admin/pending-devices/:id/approve.
func (h *AdminHandler) ApprovePendingDeviceHandler(c *gin.Context) {
	d, err := h.Devices.ApprovePendingDevice(c.Param("id"))
	if err != nil {
		if errors.Is(err, device.ErrAlreadyProcessed) {
			utils.JSONError(c, http.StatusConflict, "already_processed", "")
			return
		}
		h.respondDeviceError(c, err, "failed to approve pending device")
		return
	}
	c.JSON(http.StatusOK, gin.H{"device": d})
}

// RejectPendingDeviceHandler handles POST /admin/pending-devices/:id/reject.
func (h *AdminHandler) RejectPendingDeviceHandler(c *gin.Context) {
	if err := h.Devices.RejectPendingDevice(c.Param("id")); err != nil {
		h.respondDeviceError(c, err, "failed to reject pending device")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "rejected"})
}

func (h *AdminHandler) respondDeviceError(c *gin.Context, err error, msg string) {
	if errors.Is(err, device.ErrDeviceNotFound) {
		utils.JSONError(c, http.StatusNotFound, "not_found", "")
		return
	}
	getLogger(c).Error(msg, zap.Error(err))
	utils.JSONError(c, http.StatusInternalServerError, "internal_error", msg)
}
