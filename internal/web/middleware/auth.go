package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"plantcare/internal/metrics"
)

// RequireAuth guards user-facing routes with a user JWT
func (m *MiddlewareManager) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := m.auth.ValidateUserToken(bearerToken(c))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}

// RequireDeviceAuth guards the device gateway with a short-lived device JWT
func (m *MiddlewareManager) RequireDeviceAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		deviceID, err := m.auth.ValidateDeviceToken(bearerToken(c))
		if err != nil {
			metrics.Default.TelemetryAuthFail.Add(1)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		c.Set("device_id", deviceID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	return strings.TrimPrefix(header, "Bearer ")
}
