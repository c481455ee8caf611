package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/timmy/creatorkit/internal/auth"
	"github.com/timmy/creatorkit/internal/logger"
)

// TokenVerifier validates a bearer token and returns the user id.
type TokenVerifier interface {
	Verify(token string) (string, *auth.Claims, error)
}

const sessionCookie = "__session"

// bearerToken reads the Authorization header, falling back to the session cookie.
func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := c.Cookie(sessionCookie); err == nil {
		return cookie
	}
	return ""
}

func authenticate(c *gin.Context, v TokenVerifier) bool {
	token := bearerToken(c)
	if token == "" {
		return false
	}
	userID, _, err := v.Verify(token)
	if err != nil {
		logger.CtxDebug(c.Request.Context(), "Rejected token: %v", err)
		return false
	}

	ctx := auth.WithUserID(c.Request.Context(), userID)
	ctx = logger.SetUserID(ctx, userID)
	c.Request = c.Request.WithContext(ctx)
	return true
}

// RequireAuth rejects requests without a valid token before any handler runs.
func RequireAuth(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticate(c, v) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

// OptionalAuth attaches the user when a valid token is present.
func OptionalAuth(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authenticate(c, v)
		c.Next()
	}
}

// RequireUser allows only the listed user ids. It must run after RequireAuth.
func RequireUser(userIDs []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		allowed[id] = true
	}
	return func(c *gin.Context) {
		userID, _ := auth.UserIDFromContext(c.Request.Context())
		if !allowed[userID] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
