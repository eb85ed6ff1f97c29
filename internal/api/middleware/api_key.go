package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// APIKeyHeader carries the operator key for admin routes
const APIKeyHeader = "X-Tariffgate-Key"

// APIKey rejects requests whose X-Tariffgate-Key header does not match apiKey.
// apiKey may be a bcrypt hash ("$2..."). An empty apiKey rejects every request.
func APIKey(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !keyMatches(apiKey, c.GetHeader(APIKeyHeader)) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Unauthorized",
				"details": "missing or invalid " + APIKeyHeader + " header",
			})
			return
		}

		c.Set("authenticated", true)
		c.Next()
	}
}

func keyMatches(apiKey, provided string) bool {
	if apiKey == "" || provided == "" {
		return false
	}
	if strings.HasPrefix(apiKey, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(apiKey), []byte(provided)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) == 1
}
