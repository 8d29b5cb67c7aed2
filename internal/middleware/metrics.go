package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/family-calendar-api/internal/service"
	"github.com/noah-isme/family-calendar-api/pkg/logger"
)

const (
	scopeFamily = "family"
	scopePublic = "public"
)

// Metrics returns middleware that captures request metrics using the provided
// service. Requests authenticated as a family member are labelled scope=family;
// join, public key and feed downloads stay public.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		scope := scopePublic
		if c.GetString(logger.FamilyIDKey) != "" {
			scope = scopeFamily
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, scope, c.Writer.Status(), duration)
	}
}
