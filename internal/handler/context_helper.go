package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/opswindow/opswindow-api/internal/middleware"
	"github.com/opswindow/opswindow-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// actorFromContext resolves who performed an operator action for the activity
// trail. Unauthenticated test contexts fall back to "system".
func actorFromContext(c *gin.Context) string {
	claims := claimsFromContext(c)
	if claims == nil || claims.Email == "" {
		return "system"
	}
	return claims.Email
}
