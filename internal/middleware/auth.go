package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"taskshare/backend/internal/identity"
)

// Context keys set by RequireAuth for downstream handlers.
const (
	CtxUserID    = "user_id"
	CtxUserEmail = "user_email"
	CtxUserName  = "user_name"
)

// RequireAuth verifies the bearer token and stashes the resolved identity in
// the gin context. Everything under /tasks runs behind it.
func RequireAuth(resolver identity.TokenResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "missing_token",
				"message": "Authorization header is required",
			})
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_token_format",
				"message": "Authorization header must use Bearer token",
			})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		id, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_token",
				"message": "Token validation failed",
			})
			return
		}

		c.Set(CtxUserID, id.ID)
		c.Set(CtxUserEmail, id.Email)
		c.Set(CtxUserName, id.DisplayName)
		c.Next()
	}
}

// UserID returns the authenticated subject set by RequireAuth.
func UserID(c *gin.Context) string {
	id, _ := c.Get(CtxUserID)
	s, _ := id.(string)
	return s
}
