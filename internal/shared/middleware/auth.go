package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"book-catalog/internal/shared/response"
	"book-catalog/pkg/jwt"
)

// Context keys set by Auth.
const (
	ContextSubject = "subject"
	ContextRole    = "role"
)

// Auth requires a valid "Bearer <access token>" header and stores the subject and
// role in the gin context.
func Auth(manager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Unauthorized(c, "invalid authorization header format")
			return
		}

		claims, err := manager.ValidateAccessToken(strings.TrimSpace(parts[1]))
		if err != nil {
			log.Debug().Err(err).Str("request_id", c.GetString(ContextRequestID)).Msg("Rejected token")
			response.Unauthorized(c, "invalid token")
			return
		}

		c.Set(ContextSubject, claims.Subject)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}
