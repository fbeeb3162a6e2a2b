package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/statusplus/portal-api/internal/middleware"
	"github.com/statusplus/portal-api/internal/models"
)

// currentClaims extracts the authenticated claims from the gin context.
func currentClaims(c *gin.Context) (*models.JWTClaims, bool) {
	claimsValue, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil, false
	}
	claims, ok := claimsValue.(*models.JWTClaims)
	return claims, ok
}
