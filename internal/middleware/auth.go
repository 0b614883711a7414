package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ilker/tracker-server/internal/auth"
)

const identityKey = "identity"

// RequireToken rejects requests without a valid bearer token with 401 and
// stores the token's identity on the context.
func RequireToken(tokens *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		token, err := auth.TokenFromHeader(authHeader)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			return
		}

		claims, err := tokens.Validate(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(identityKey, claims.Identity())
		c.Next()
	}
}

// AdminOnly must run after RequireToken. Any identity other than the admin
// gets 403.
func AdminOnly(authenticator *auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := authenticator.Authorize(GetIdentity(c)); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

func GetIdentity(c *gin.Context) string {
	return c.GetString(identityKey)
}
