// Package middleware holds gin middleware for the admin API.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"otp-relay/internal/audit"
	"otp-relay/internal/security"
)

// Gin context keys set by OperatorAuth.
const (
	ContextOperator = "operator"
	ContextRole     = "role"
)

// Operator roles carried in the token's role claim.
const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

// TokenValidator validates operator bearer tokens (e.g. *security.TokenProvider).
type TokenValidator interface {
	ValidateOperator(token string) (*security.OperatorClaims, error)
}

// OperatorAuth requires a valid operator bearer token and stores its subject and role.
func OperatorAuth(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization"})
			return
		}
		claims, err := tokens.ValidateOperator(strings.TrimSpace(parts[1]))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(ContextOperator, claims.Subject)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// RequireAnyRole allows operators whose role is one of roles.
func RequireAnyRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		current := c.GetString(ContextRole)
		for _, role := range roles {
			if current == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}

// RequireWriteRole lets every authenticated operator read and only the given roles change state.
func RequireWriteRole(roles ...string) gin.HandlerFunc {
	allow := RequireAnyRole(roles...)
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
		default:
			allow(c)
		}
	}
}

// ClientIP puts the caller's IP into the request context so audit entries can record it.
func ClientIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(audit.ContextWithIP(c.Request.Context(), c.ClientIP()))
		c.Next()
	}
}

// Operator returns the authenticated operator's subject.
func Operator(c *gin.Context) string {
	return c.GetString(ContextOperator)
}
