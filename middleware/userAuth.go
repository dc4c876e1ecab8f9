package middleware

import (
	"net/http"
	"strings"

	"tigermeter/utils"

	"github.com/gin-gonic/gin"
)

// bearerToken extracts the bearer credential from the Authorization header.
func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(authHeader, "Bearer ")
}

// UserAuthMiddleware validates a portal JWT and stores the typed
// principal in the context. Tokens without a recognized role claim
// are rejected. Device secrets are never accepted here; the two
// credential domains share no validation logic.
func UserAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing token"})
			return
		}

		principal, err := utils.ExtractPrincipal(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set("userID", principal.UserID)
		c.Set("role", principal.Role)
		c.Next()
	}
}

// AdminAuthMiddleware validates a portal JWT and additionally requires
// the admin role.
func AdminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing token"})
			return
		}

		principal, err := utils.ExtractPrincipal(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		if principal.Role != utils.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin only"})
			return
		}

		c.Set("userID", principal.UserID)
		c.Set("role", principal.Role)
		c.Next()
	}
}
