package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/statusplus/portal-api/internal/models"
	"github.com/statusplus/portal-api/internal/service"
)

// Activity slides the inactivity window on every authenticated request,
// mirroring the frontend's click/keypress/scroll listeners. Must run after
// the JWT middleware.
func Activity(sessions *service.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sessions != nil {
			if claimsValue, exists := c.Get(ContextUserKey); exists {
				if claims, ok := claimsValue.(*models.JWTClaims); ok && claims.Email != "" {
					sessions.Touch(c.Request.Context(), claims.Email)
				}
			}
		}
		c.Next()
	}
}
