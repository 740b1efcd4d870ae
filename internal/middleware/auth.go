package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/evenlyhq/evenly/internal/auth"
)

const (
	// PersonIDKey is the gin context key for the authenticated person ID.
	PersonIDKey = "person_id"
	// EmailKey is the gin context key for the authenticated email.
	EmailKey = "email"
)

// Viewer extracts the authenticated person ID from the gin context.
// Returns empty string if not set.
func Viewer(c *gin.Context) string {
	personID, _ := c.Get(PersonIDKey)
	s, _ := personID.(string)
	return s
}

// RequireAuth validates the bearer token and stores the viewer identity on
// the request context. Requests without a valid token are rejected.
func RequireAuth(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrMissingToken.Error()})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrInvalidToken.Error()})
			return
		}

		claims, err := jwtManager.Validate(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrInvalidToken.Error()})
			return
		}

		c.Set(PersonIDKey, claims.PersonID)
		c.Set(EmailKey, claims.Email)
		c.Next()
	}
}
