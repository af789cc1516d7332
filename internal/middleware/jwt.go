package middleware

import (
	"context"  // Request context
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"coupon_tracker/internal/domain" // Domain models

	"github.com/gin-gonic/gin" // Gin web framework
)

// UserKey is the context key holding the *domain.User of the caller
const UserKey = "user"

// Authenticator resolves a bearer token to a user
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

// JWTAuthMiddleware validates bearer tokens and rejects anonymous requests.
// The response never says why a token was rejected.
func JWTAuthMiddleware(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := authenticate(c, authn)
		if !ok {
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}
		c.Set(UserKey, user) // Store user in context
		c.Next()             // Proceed to the next handler
	}
}

// OptionalJWTMiddleware attaches the caller when a valid bearer token is
// present and lets anonymous requests through otherwise
func OptionalJWTMiddleware(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user, ok := authenticate(c, authn); ok {
			c.Set(UserKey, user)
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated caller, if any
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	v, exists := c.Get(UserKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*domain.User)
	return user, ok && user != nil
}

func authenticate(c *gin.Context, authn Authenticator) (*domain.User, bool) {
	authHeader := c.GetHeader("Authorization") // Get Authorization header
	scheme, token, found := strings.Cut(strings.TrimSpace(authHeader), " ")
	// Check if the Authorization header is present and properly formatted
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return nil, false
	}
	user, err := authn.Authenticate(c.Request.Context(), strings.TrimSpace(token))
	if err != nil {
		return nil, false
	}
	return user, true
}
