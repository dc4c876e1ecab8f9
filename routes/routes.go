package routes

import (
	"net/http"
	"time"

	"tigermeter/handlers"
	"tigermeter/middleware"
	"tigermeter/services/device"
	"tigermeter/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Per-endpoint claim rate limits bound brute-force guessing of the
// 6-digit claim codes.
const (
	issueClaimPerMinute  = 20
	attachClaimPerMinute = 30
	pollClaimPerMinute   = 60
)

// RegisterClaimRoutes registers the device-claim lifecycle endpoints.
func RegisterClaimRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/device-claims")
	{
		api.POST("", middleware.ScopedRateLimit("claim-issue", issueClaimPerMinute), hb.IssueClaimHandler)
		api.GET("/:code/poll", middleware.ScopedRateLimit("claim-poll", pollClaimPerMinute), hb.PollClaimHandler)

		// Attaching requires an authenticated portal user.
		api.POST("/:code/attach",
			middleware.ScopedRateLimit("claim-attach", attachClaimPerMinute),
			middleware.UserAuthMiddleware(),
			hb.AttachClaimHandler)
	}
}

// RegisterDeviceRoutes registers device-secret-authenticated endpoints.
func RegisterDeviceRoutes(r *gin.Engine, hb *handlers.HandlerBundle, svc device.DeviceService) {
	r.POST("/api/devices/provision", hb.ProvisionDeviceHandler)

	api := r.Group("/api/devices")
	{
		api.Use(middleware.DeviceAuthMiddleware(svc))
		api.POST("/:id/heartbeat", hb.HeartbeatHandler)
		api.GET("/:id/display/hash", hb.GetDisplayHashHandler)
		api.GET("/:id/display/full", hb.GetDisplayFullHandler)
		api.POST("/:id/secret/refresh", hb.RefreshSecretHandler)
	}
}

// RegisterPortalRoutes registers end-user portal endpoints.
func RegisterPortalRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/portal")
	{
		api.Use(middleware.UserAuthMiddleware())
		api.GET("/devices", hb.ListOwnDevicesHandler)
		api.GET("/devices/:id", hb.GetOwnDeviceHandler)
		api.POST("/devices/:id/revoke", hb.OwnerRevokeHandler)
		api.PUT("/devices/:id/display", hb.SetDisplayHandler)
	}
}

// RegisterAdminRoutes sets up endpoints for admin operations.
func RegisterAdminRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	adminGroup := r.Group("/api/admin")
	{
		adminGroup.Use(middleware.AdminAuthMiddleware())
		adminGroup.GET("/devices", hb.AdminHandler.ListDevicesHandler)
		adminGroup.POST("/devices/:id/revoke", hb.AdminHandler.RevokeDeviceHandler)
		adminGroup.DELETE("/devices/:id", hb.AdminHandler.DeleteDeviceHandler)
		adminGroup.POST("/devices/:id/factory-reset", hb.AdminHandler.FactoryResetHandler)
		adminGroup.PATCH("/devices/:id/settings", hb.AdminHandler.UpdateSettingsHandler)
		adminGroup.GET("/device-claims/:code", hb.AdminHandler.GetClaimHandler)
		adminGroup.GET("/pending-devices", hb.AdminHandler.ListPendingDevicesHandler)
		adminGroup.POST("/pending-devices/:id/approve", hb.AdminHandler.ApprovePendingDeviceHandler)
		adminGroup.POST("/pending-devices/:id/reject", hb.AdminHandler.RejectPendingDeviceHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "services": utils.GetHealthStatus()})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle, svc device.DeviceService) {
	// Setup global middleware (e.g., CORS) here.
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterClaimRoutes(r, hb)
	RegisterDeviceRoutes(r, hb, svc)
	RegisterPortalRoutes(r, hb)
	RegisterAdminRoutes(r, hb)
	RegisterHealthRoute(r)
}
