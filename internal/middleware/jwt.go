package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gaming-workshop/backend/internal/auth"
	"github.com/gaming-workshop/backend/pkg/response"
)

const (
	// ContextAdmin is the key for the authenticated admin subject in gin context.
	ContextAdmin = "admin"
)

// JWT returns a middleware that validates the admin token.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextAdmin, claims.Subject)
		c.Next()
	}
}
