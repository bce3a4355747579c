package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nanogate/imagegate/internal/service"
)

// Validates JWT token and requires authentication
func RequireAuth(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, ok := bearerAccountID(c, authService)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or missing token",
			})
			c.Abort()
			return
		}

		c.Set("account_id", accountID)
		c.Next()
	}
}

// OptionalAuth resolves the caller identity when a token is present but
// lets anonymous requests through; they are metered by IP instead.
func OptionalAuth(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") != "" {
			accountID, ok := bearerAccountID(c, authService)
			if !ok {
				c.JSON(http.StatusUnauthorized, gin.H{
					"error": "Invalid or expired token",
				})
				c.Abort()
				return
			}
			c.Set("account_id", accountID)
		}

		c.Next()
	}
}

func bearerAccountID(c *gin.Context, authService *service.AuthService) (uuid.UUID, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return uuid.Nil, false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return uuid.Nil, false
	}

	claims, err := authService.ValidateToken(parts[1])
	if err != nil {
		return uuid.Nil, false
	}

	idStr, _ := claims["account_id"].(string)
	accountID, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, false
	}

	return accountID, true
}

// CallerIdentity reads what the auth middleware stored and builds the
// metering identity for this request.
func CallerIdentity(c *gin.Context) service.Identity {
	if v, exists := c.Get("account_id"); exists {
		if id, ok := v.(uuid.UUID); ok {
			return service.Identity{AccountID: &id, IP: c.ClientIP()}
		}
	}
	return service.Identity{IP: c.ClientIP()}
}
