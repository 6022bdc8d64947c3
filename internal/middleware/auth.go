// internal/middleware/auth.go
package middleware

import (
	"strings"

	"github.com/javajoker/duka-backend/internal/i18n"
	"github.com/javajoker/duka-backend/internal/utils"

	"github.com/gin-gonic/gin"
)

func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := utils.GetLangFromContext(c)

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthRequired))
			c.Abort()
			return
		}

		claims, ok := parseBearer(authHeader)
		if !ok {
			utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthInvalidToken))
			c.Abort()
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// SellerRequired must run after AuthRequired.
func SellerRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := utils.GetClaimsFromContext(c)
		if !ok || claims.Role != utils.RoleSeller {
			utils.ForbiddenResponse(c, "")
			c.Abort()
			return
		}
		c.Next()
	}
}

func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		// Set user info in context if token is valid
		if claims, ok := parseBearer(authHeader); ok {
			setClaims(c, claims)
		}
		c.Next()
	}
}

func parseBearer(header string) (*utils.JWTClaims, bool) {
	// Extract token from "Bearer <token>"
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, false
	}

	claims, err := utils.ValidateJWT(parts[1])
	if err != nil {
		return nil, false
	}
	return claims, true
}

func setClaims(c *gin.Context, claims *utils.JWTClaims) {
	c.Set("user_id", claims.UserID)
	c.Set("username", claims.Username)
	c.Set("role", claims.Role)
	c.Set("claims", claims)
}
