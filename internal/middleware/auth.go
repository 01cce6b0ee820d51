package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"picstoria/api/internal/security"
	"picstoria/api/internal/service"
)

const (
	// AccessCookie carries the short-lived access token. A Bearer header is
	// accepted as an alternative for non-browser clients.
	AccessCookie = "access"

	ContextUserKey   = "current_user"
	ContextClaimsKey = "access_claims"
)

func Auth(codec *security.TokenCodec, users service.UserStore, sessions service.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := accessTokenFrom(c)
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		claims, err := codec.ParseAccess(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		session, err := sessions.GetByID(c.Request.Context(), claims.SessionID)
		if err != nil || session.UserID != claims.UserID {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		user, err := users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		// Tokens minted before a tokenVersion bump are dead.
		if user.TokenVersion != claims.TokenVersion {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(ContextClaimsKey, *claims)
		c.Set(ContextUserKey, user)

		c.Next()
	}
}

func accessTokenFrom(c *gin.Context) string {
	if cookie, err := c.Cookie(AccessCookie); err == nil && cookie != "" {
		return cookie
	}
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
