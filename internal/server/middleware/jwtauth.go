package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"aegis-system/internal/policy"
	"aegis-system/internal/utils"
)

const identityKey = "identity"

// JWTAuth validates the Bearer token and stores the caller's identity in
// the request context for the handlers.
func JWTAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "missing bearer token",
			})
			return
		}

		claims, err := utils.ParseToken(secret, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "invalid or expired token",
			})
			return
		}

		role, err := policy.ParseRole(claims.Role)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "token carries an unknown role",
			})
			return
		}

		c.Set(identityKey, policy.User{
			ID:     claims.UserId,
			Role:   role,
			BaseID: claims.BaseId,
		})
		c.Next()
	}
}

// Identity returns the authenticated caller stored by JWTAuth.
func Identity(c *gin.Context) (policy.User, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return policy.User{}, false
	}
	user, ok := v.(policy.User)
	return user, ok
}
