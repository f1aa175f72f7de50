package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// APIKeyConfig holds the configuration for API key authentication
type APIKeyConfig struct {
	HeaderName string
	// QueryParam optionally accepts the key as a query parameter,
	// needed for EventSource clients that cannot set headers.
	QueryParam  string
	ValidAPIKey string
}

// APIKeyMiddleware creates a middleware function to validate API keys
func APIKeyMiddleware(config APIKeyConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := strings.TrimSpace(c.GetHeader(config.HeaderName))
		if apiKey == "" && config.QueryParam != "" {
			apiKey = strings.TrimSpace(c.Query(config.QueryParam))
		}

		if apiKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Missing API key",
			})
			c.Abort()
			return
		}

		if apiKey != config.ValidAPIKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid API key",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
