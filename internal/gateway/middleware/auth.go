package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"lecoq-erp/internal/utils"
)

const (
	ContextUserID   = "userID"
	ContextUsername = "username"
	ContextRole     = "role"
)

// JWTAuth validates the Authorization bearer token and stores the principal
// in the request context. Handlers read it once and pass explicit user ids
// into the services.
func JWTAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Missing or malformed Authorization header",
			})
			return
		}

		claims, err := utils.ParseToken(secret, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Invalid or expired token",
			})
			return
		}

		c.Set(ContextUserID, claims.UserId)
		c.Set(ContextUsername, claims.Username)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// RequireRoles rejects requests whose authenticated role is not in the list.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextRole)
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"success": false,
			"message": "Insufficient permissions",
		})
	}
}

// CurrentUserID returns the authenticated user's id from the context. The
// second return is false when the request never went through JWTAuth.
func CurrentUserID(c *gin.Context) (int64, bool) {
	id := c.GetInt64(ContextUserID)
	return id, id != 0
}
