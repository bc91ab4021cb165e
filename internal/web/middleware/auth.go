package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// AuthMiddleware valida o token Bearer no header Authorization
func AuthMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, "UNAUTHORIZED", "No authorization header provided")
			return
		}

		scheme, provided, ok := strings.Cut(authHeader, " ")
		if !ok || scheme != "Bearer" || provided == "" {
			abort(c, "INVALID_AUTH_FORMAT", "Authorization header must be 'Bearer <token>'")
			return
		}

		if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			abort(c, "INVALID_TOKEN", "Invalid authentication token")
			return
		}

		c.Next()
	}
}

func abort(c *gin.Context, code, message string) {
	log.Debug().
		Str("path", c.Request.URL.Path).
		Str("code", code).
		Msg("Request rejected")

	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
