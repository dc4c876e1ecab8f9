package handlers

import (
	"errors"
	"net/http"

	"tigermeter/models"
	"tigermeter/services/claim"
	"tigermeter/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ClaimHandler exposes the claim state machine over HTTP.
type ClaimHandler struct {
	Service claim.ClaimService
}

// NewClaimHandler creates a ClaimHandler.
func NewClaimHandler(svc claim.ClaimService) *ClaimHandler {
	return &ClaimHandler{Service: svc}
}

// IssueClaimHandler handles POST /device-claims.
func (h *ClaimHandler) IssueClaimHandler(c *gin.Context) {
	logger := getLogger(c)

	var req models.IssueClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "missing_fields", err.Error())
		return
	}

	resp, err := h.Service.IssueClaim(req)
	if err != nil {
		switch {
		case errors.Is(err, claim.ErrInvalidMac):
			utils.JSONError(c, http.StatusBadRequest, "invalid_mac", "mac address could not be normalized")
		case errors.Is(err, claim.ErrBadHmac), errors.Is(err, claim.ErrStaleTimestamp):
			utils.JSONError(c, http.StatusUnauthorized, "invalid_hmac", "hmac verification failed")
		case errors.Is(err, claim.ErrDeviceNotFound):
			utils.JSONError(c, http.StatusNotFound, "device_not_found", "device is queued for approval")
		default:
			logger.Error("Failed to issue claim", zap.Error(err))
			utils.JSONError(c, http.StatusInternalServerError, "internal_error", "failed to issue claim")
		}
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// AttachClaimHandler handles POST /device-claims/:code/attach.
func (h *ClaimHandler) AttachClaimHandler(c *gin.Context) {
	logger := getLogger(c)

	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	deviceID, err := h.Service.AttachClaim(c.Param("code"), userID.(string))
	if err != nil {
		switch {
		case errors.Is(err, claim.ErrClaimNotFound):
			utils.JSONError(c, http.StatusBadRequest, "invalid_code", "no claim exists for this code")
		case errors.Is(err, claim.ErrClaimExpired):
			utils.JSONError(c, http.StatusBadRequest, "expired_code", "claim code has expired")
		case errors.Is(err, claim.ErrAlreadyClaimed):
			utils.JSONError(c, http.StatusConflict, "already_claimed", "claim was already attached")
		default:
			logger.Error("Failed to attach claim", zap.Error(err))
			utils.JSONError(c, http.StatusInternalServerError, "internal_error", "failed to attach claim")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"deviceId": deviceID, "message": "Attached"})
}

// PollClaimHandler handles GET /device-claims/:code/poll.
func (h *ClaimHandler) PollClaimHandler(c *gin.Context) {
	logger := getLogger(c)

	resp, err := h.Service.PollClaim(c.Param("code"))
	if err != nil {
		var pending claim.StillPendingError
		switch {
		case errors.As(err, &pending):
			// Expected while the user hasn't attached the code yet.
			c.JSON(http.StatusAccepted, gin.H{"status": pending.Status})
		case errors.Is(err, claim.ErrClaimNotFound):
			utils.JSONError(c, http.StatusNotFound, "not_found", "no claim exists for this code")
		case errors.Is(err, claim.ErrClaimExpired):
			utils.JSONError(c, http.StatusGone, "expired", "claim code has expired")
		default:
			logger.Error("Failed to poll claim", zap.Error(err))
			utils.JSONError(c, http.StatusInternalServerError, "internal_error", "failed to poll claim")
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}
