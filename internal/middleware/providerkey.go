package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// ProviderKey lets callers bring their own provider credential. The key
// becomes a single-entry credential pool for that dispatch and the system
// pools are bypassed entirely.
func ProviderKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader("X-Provider-Key"))
		if key != "" {
			c.Set("provider_key", key)
		}

		c.Next()
	}
}
