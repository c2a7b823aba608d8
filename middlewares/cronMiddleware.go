package middlewares

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"bitbucket.org/saluddigitalcl/farmacia_backend/config"
	"github.com/gin-gonic/gin"
)

// CronAuthMiddleware guards the scheduler tick endpoint with a shared
// secret. In production a missing secret closes the endpoint; outside
// production an unset secret leaves it open for local testing.
func CronAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := config.CronSecret()
		if secret == "" {
			if config.IsProduction() {
				c.JSON(http.StatusForbidden, gin.H{"error": "cron endpoint disabled"})
				c.Abort()
				return
			}
			c.Next()
			return
		}

		provided := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if provided == "" {
			provided = c.Query("secret")
		}
		if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}
