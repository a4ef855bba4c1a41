package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// AuthMiddleware guards the staff endpoints, accepting either a configured
// static token or an HMAC-signed JWT. Public booking endpoints are not
// behind this: they are capability-token based.
func AuthMiddleware(staticTokensCSV, jwtSecret string) gin.HandlerFunc {
	staticTokens := strings.Split(strings.TrimSpace(staticTokensCSV), ",")

	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}
		parts := strings.Fields(auth)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		tokenStr := parts[1]

		// JWT path
		if jwtSecret != "" {
			_, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrTokenMalformed
				}
				return []byte(jwtSecret), nil
			}, jwt.WithLeeway(5*time.Second))
			if err == nil {
				c.Next()
				return
			}
		}

		// static tokens
		for _, t := range staticTokens {
			if t != "" && tokenStr == strings.TrimSpace(t) {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
	}
}
