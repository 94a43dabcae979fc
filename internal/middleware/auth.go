package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"helpdesk_backend/internal/auth"
	"helpdesk_backend/internal/logger"
	"helpdesk_backend/internal/models"
)

const principalKey = "principal"

// AuthMiddleware validates the bearer token and stores the resulting
// Principal on the gin context for handlers to pass down explicitly.
func AuthMiddleware(issuer *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Access denied, no token found."})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := issuer.Parse(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(principalKey, auth.Principal{UserID: claims.UserID, Role: claims.Role})

		ctx := logger.WithUserID(c.Request.Context(), claims.UserID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireRoles rejects requests whose principal holds none of the roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	roleSet := make(map[models.UserRole]bool)
	for _, r := range roles {
		roleSet[r] = true
	}

	return func(c *gin.Context) {
		principal, ok := CurrentPrincipal(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		if !roleSet[principal.Role] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden: insufficient role"})
			return
		}

		c.Next()
	}
}

// CurrentPrincipal extracts the authenticated principal set by
// AuthMiddleware.
func CurrentPrincipal(c *gin.Context) (auth.Principal, bool) {
	val, exists := c.Get(principalKey)
	if !exists {
		return auth.Principal{}, false
	}

	principal, ok := val.(auth.Principal)
	return principal, ok
}
