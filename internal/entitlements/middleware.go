package entitlements

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"quotevault/internal/auth"
)

// RequireEntitlement gates premium routes. Anonymous requests are
// rejected outright; a billing API failure answers 503 rather than
// silently granting or revoking access.
func RequireEntitlement(client *Client, entitlement string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := auth.GetUserID(c)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "sign-in required",
			})
			return
		}

		active, err := client.Active(c.Request.Context(), userID, entitlement)
		if err != nil {
			log.Printf("Entitlements: check failed for %s: %v", userID, err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": "subscription could not be verified",
			})
			return
		}
		if !active {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "subscription required",
			})
			return
		}

		c.Next()
	}
}
