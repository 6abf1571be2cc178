package middleware

import (
	"github.com/gin-gonic/gin"

	"book-catalog/internal/shared/response"
)

// RequireRole must run after Auth.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role := c.GetString(ContextRole)
		if _, ok := allowed[role]; !ok {
			response.Forbidden(c, "access denied: role "+quoteRole(role)+" is not allowed")
			return
		}
		c.Next()
	}
}

func quoteRole(role string) string {
	if role == "" {
		return "<none>"
	}
	return role
}
