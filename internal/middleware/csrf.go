package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"picstoria/api/internal/security"
)

const (
	CSRFCookie = "csrf"
	CSRFHeader = "X-CSRF-Token"
)

// CSRF enforces the double-submit pattern: mutating requests must echo the
// readable csrf cookie in a header. The refresh endpoint is deliberately
// not behind this middleware; its cookie is path-scoped to /api/auth
// instead.
func CSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		cookie, err := c.Cookie(CSRFCookie)
		if err != nil || !security.CSRFTokenMatches(c.GetHeader(CSRFHeader), cookie) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid csrf token"})
			return
		}

		c.Next()
	}
}
