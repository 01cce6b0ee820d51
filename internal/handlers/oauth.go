package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"picstoria/api/internal/oauth"
)

const (
	stateCookie     = "oauth_state"
	stateCookiePath = "/api/auth/google"
	stateCookieTTL  = 600 // seconds
)

// GoogleRedirect starts the OAuth flow. The random state lands in a
// short-lived cookie and must round-trip through the provider.
func (h HandlerSet) GoogleRedirect(c *gin.Context) {
	state := uuid.NewString()

	secure := h.cookieMode(c)
	c.SetCookie(stateCookie, state, stateCookieTTL, stateCookiePath, "", secure, true)

	c.Redirect(http.StatusFound, h.provider.AuthCodeURL(state))
}

func (h HandlerSet) GoogleCallback(c *gin.Context) {
	loginURL := h.cfg.FrontendURL + "/login"

	expectedState, err := c.Cookie(stateCookie)
	if err != nil || expectedState == "" || c.Query("state") != expectedState {
		c.Redirect(http.StatusFound, loginURL)
		return
	}

	code := c.Query("code")
	if code == "" {
		c.Redirect(http.StatusFound, loginURL)
		return
	}

	identity, err := h.provider.Exchange(c.Request.Context(), code)
	if err != nil {
		h.log.Warn().Err(err).Msg("oauth exchange failed")
		c.Redirect(http.StatusFound, loginURL)
		return
	}

	result, err := h.auth.LoginWithProvider(c.Request.Context(), identity,
		c.GetHeader("User-Agent"), c.ClientIP())
	if err != nil {
		if errors.Is(err, oauth.ErrMissingEmail) {
			c.Redirect(http.StatusFound, loginURL)
			return
		}
		h.log.Error().Err(err).Msg("oauth login failed")
		c.Redirect(http.StatusFound, loginURL)
		return
	}

	secure := h.cookieMode(c)
	c.SetCookie(stateCookie, "", -1, stateCookiePath, "", secure, true)
	h.setAuthCookies(c, result)

	c.Redirect(http.StatusFound, h.cfg.FrontendURL+"/collection")
}
