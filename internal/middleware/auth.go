// internal/middleware/auth.go
package middleware

import (
	"net/http"
	"strings"

	"github.com/javajoker/paper-ledger/internal/i18n"
	"github.com/javajoker/paper-ledger/internal/utils"

	"github.com/gin-gonic/gin"
)

// AuthRequired resolves the bearer token to a caller principal and stores it
// under "principal".
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := utils.GetLangFromContext(c)

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", i18n.T(lang, i18n.KeyAuthRequired), nil)
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", i18n.T(lang, i18n.KeyAuthInvalidToken), nil)
			c.Abort()
			return
		}

		claims, err := utils.ValidateJWT(parts[1])
		if err != nil {
			utils.ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", i18n.T(lang, i18n.KeyAuthTokenExpired), nil)
			c.Abort()
			return
		}

		principal, _ := utils.NormalizeAddress(claims.Principal)
		c.Set("principal", principal)
		c.Next()
	}
}

// OwnerAdminRequired must run after AuthRequired.
func OwnerAdminRequired(ownerAdmin string) gin.HandlerFunc {
	normalized, _ := utils.NormalizeAddress(ownerAdmin)
	return func(c *gin.Context) {
		principal, ok := utils.GetPrincipalFromContext(c)
		if !ok || normalized == "" || principal != normalized {
			utils.ForbiddenResponse(c, "")
			c.Abort()
			return
		}
		c.Next()
	}
}
