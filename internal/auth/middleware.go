package auth

import (
	"net/http"
	"strings"
	"time"

	"telecrm/internal/apperr"

	"github.com/gin-gonic/gin"
)

const authorizationHeader = "Authorization"
const bearerPrefix = "Bearer "

// RequireAccessToken verifies an operator access token and injects identity into request context.
// It does not perform RBAC checks; those belong to internal/rbac.
func RequireAccessToken(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(authorizationHeader))
		if raw == "" || !strings.HasPrefix(raw, bearerPrefix) {
			abortUnauthorized(c, "missing bearer token")
			return
		}
		if !attach(c, m, strings.TrimPrefix(raw, bearerPrefix)) {
			abortUnauthorized(c, "invalid token")
			return
		}
		c.Next()
	}
}

// OptionalAccessToken attaches operator identity when a bearer token is present.
// Requests without one pass through untouched (device-token paths); a present
// but invalid token is rejected.
func OptionalAccessToken(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(authorizationHeader))
		if raw == "" {
			c.Next()
			return
		}
		if !strings.HasPrefix(raw, bearerPrefix) || !attach(c, m, strings.TrimPrefix(raw, bearerPrefix)) {
			abortUnauthorized(c, "invalid token")
			return
		}
		c.Next()
	}
}

func attach(c *gin.Context, m *Manager, tok string) bool {
	if m == nil {
		return false
	}
	claims, err := m.Verify(tok, time.Now())
	if err != nil {
		return false
	}
	ctx := WithIdentity(c.Request.Context(), claims.UserID, claims.Role)
	c.Request = c.Request.WithContext(ctx)

	// Also store on gin context for handler convenience.
	c.Set("user_id", claims.UserID)
	c.Set("role", claims.Role)
	return true
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg, "kind": apperr.KindUnauthorized})
}
