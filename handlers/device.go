package handlers

import (
	"errors"
	"net/http"

	"tigermeter/config"
	"tigermeter/models"
	"tigermeter/services/device"
	"tigermeter/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DeviceHandler exposes device-secret-authenticated endpoints.
type DeviceHandler struct {
	Service device.DeviceService
}

// NewDeviceHandler creates a DeviceHandler.
func NewDeviceHandler(svc device.DeviceService) *DeviceHandler {
	return &DeviceHandler{Service: svc}
}

// contextDevice retrieves the device stored by DeviceAuthMiddleware.
func contextDevice(c *gin.Context) *models.Device {
	if d, exists := c.Get("device"); exists {
		if dev, ok := d.(*models.Device); ok {
			return dev
		}
	}
	return nil
}

// HeartbeatHandler handles POST /devices/:id/heartbeat.
func (h *DeviceHandler) HeartbeatHandler(c *gin.Context) {
	logger := getLogger(c)

	dev := contextDevice(c)
	if dev == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.HeartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	resp, err := h.Service.Heartbeat(dev, req)
	if err != nil {
		logger.Error("Heartbeat failed", zap.String("deviceId", dev.ID), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "internal_error", "heartbeat failed")
		return
	}
	if resp.FactoryReset {
		c.JSON(http.StatusOK, gin.H{"factoryReset": true})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetDisplayHashHandler handles GET /devices/:id/display/hash.
func (h *DeviceHandler) GetDisplayHashHandler(c *gin.Context) {
	dev := contextDevice(c)
	if dev == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"hash": h.Service.GetDisplayHash(dev)})
}

// GetDisplayFullHandler handles GET /devices/:id/display/full.
func (h *DeviceHandler) GetDisplayFullHandler(c *gin.Context) {
	logger := getLogger(c)

	dev := contextDevice(c)
	if dev == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	instruction, err := h.Service.GetDisplayFull(dev, c.Query("ifHash"))
	if err != nil {
		switch {
		case errors.Is(err, device.ErrNotModified):
			c.Status(http.StatusNotModified)
		case errors.Is(err, device.ErrNoInstruction):
			utils.JSONError(c, http.StatusNotFound, "not_found", "no display instruction set")
		default:
			logger.Error("Failed to fetch display instruction", zap.Error(err))
			utils.JSONError(c, http.StatusInternalServerError, "internal_error", "failed to fetch display instruction")
		}
		return
	}
	c.JSON(http.StatusOK, instruction)
}

// RefreshSecretHandler handles POST /devices/:id/secret/refresh.
func (h *DeviceHandler) RefreshSecretHandler(c *gin.Context) {
	logger := getLogger(c)

	dev := contextDevice(c)
	if dev == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	resp, err := h.Service.RefreshSecret(dev.ID)
	if err != nil {
		logger.Error("Secret refresh failed", zap.String("deviceId", dev.ID), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "internal_error", "secret refresh failed")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ProvisionDeviceHandler handles POST /devices/provision (dev only).
func (h *DeviceHandler) ProvisionDeviceHandler(c *gin.Context) {
	if config.IsProduction() {
		utils.JSONError(c, http.StatusNotFound, "not_found", "")
		return
	}

	var req struct {
		Mac             string `json:"mac" binding:"required"`
		FirmwareVersion string `json:"firmwareVersion"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "mac required", err.Error())
		return
	}

	dev, err := h.Service.Provision(req.Mac, req.FirmwareVersion)
	if err != nil {
		if errors.Is(err, device.ErrDeviceExists) {
			utils.JSONError(c, http.StatusConflict, "device already exists", "")
			return
		}
		utils.JSONError(c, http.StatusBadRequest, "invalid mac format", err.Error())
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": dev.ID, "mac": dev.Mac, "status": dev.Status})
}
