package handlers

import "github.com/gin-gonic/gin"

// HandlerBundle aggregates every route handler for registration.
type HandlerBundle struct {
	// Device claim endpoints.
	IssueClaimHandler  gin.HandlerFunc
	AttachClaimHandler gin.HandlerFunc
	PollClaimHandler   gin.HandlerFunc

	// Device endpoints (device-secret authenticated).
	HeartbeatHandler       gin.HandlerFunc
	GetDisplayHashHandler  gin.HandlerFunc
	GetDisplayFullHandler  gin.HandlerFunc
	RefreshSecretHandler   gin.HandlerFunc
	ProvisionDeviceHandler gin.HandlerFunc

	// Portal endpoints (user authenticated).
	ListOwnDevicesHandler gin.HandlerFunc
	GetOwnDeviceHandler   gin.HandlerFunc
	OwnerRevokeHandler    gin.HandlerFunc
	SetDisplayHandler     gin.HandlerFunc

	// Admin endpoints.
	AdminHandler *AdminHandler
}
