package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/samber/mo"

	"github.com/noah-isme/family-calendar-api/internal/middleware"
	"github.com/noah-isme/family-calendar-api/internal/models"
	appErrors "github.com/noah-isme/family-calendar-api/pkg/errors"
	"github.com/noah-isme/family-calendar-api/pkg/response"
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

// requireClaims writes a 401 and reports false when the request carries no session.
func requireClaims(c *gin.Context) (*models.JWTClaims, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return claims, true
}

func queryOption(c *gin.Context, key string) mo.Option[string] {
	value, ok := c.GetQuery(key)
	if !ok || strings.TrimSpace(value) == "" {
		return mo.None[string]()
	}
	return mo.Some(value)
}
