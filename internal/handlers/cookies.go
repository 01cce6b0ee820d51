package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"picstoria/api/internal/middleware"
	"picstoria/api/internal/service"
)

const (
	// RefreshCookie is path-scoped to the auth endpoints: the browser never
	// sends it anywhere else, which is what lets /refresh skip the CSRF
	// check.
	RefreshCookie     = "jid"
	refreshCookiePath = "/api/auth"
)

func (h HandlerSet) cookieMode(c *gin.Context) (secure bool) {
	if h.cfg.Environment == "production" {
		c.SetSameSite(http.SameSiteNoneMode)
		return true
	}
	c.SetSameSite(http.SameSiteLaxMode)
	return false
}

func (h HandlerSet) setAuthCookies(c *gin.Context, result service.AuthResult) {
	secure := h.cookieMode(c)

	c.SetCookie(RefreshCookie, result.RefreshToken,
		int(h.codec.RefreshTTL().Seconds()), refreshCookiePath, "", secure, true)
	c.SetCookie(middleware.AccessCookie, result.AccessToken,
		int(h.codec.AccessTTL().Seconds()), "/", "", secure, true)
}

func (h HandlerSet) clearAuthCookies(c *gin.Context) {
	secure := h.cookieMode(c)

	c.SetCookie(RefreshCookie, "", -1, refreshCookiePath, "", secure, true)
	c.SetCookie(middleware.AccessCookie, "", -1, "/", "", secure, true)
}

func (h HandlerSet) refreshTokenFrom(c *gin.Context) string {
	token, err := c.Cookie(RefreshCookie)
	if err != nil {
		return ""
	}
	return token
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
}
