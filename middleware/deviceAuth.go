package middleware

import (
	"errors"
	"net/http"

	"tigermeter/services/device"

	"github.com/gin-gonic/gin"
)

// DeviceAuthMiddleware validates the opaque rotating device secret for
// the device asserted in the URL path. The authenticated device record
// is stored in the context for the handler.
func DeviceAuthMiddleware(svc device.DeviceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing device secret"})
			return
		}

		d, err := svc.Authenticate(c.Param("id"), token)
		if err != nil {
			switch {
			case errors.Is(err, device.ErrDeviceNotFound):
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Device not found"})
			case errors.Is(err, device.ErrDeviceRevoked):
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Device revoked"})
			case errors.Is(err, device.ErrUnauthorized):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired secret"})
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Authentication error"})
			}
			return
		}

		c.Set("device", d)
		c.Next()
	}
}
