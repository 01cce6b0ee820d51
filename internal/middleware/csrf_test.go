package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func csrfRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CSRF())
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/resource", ok)
	r.POST("/resource", ok)
	r.DELETE("/resource", ok)
	return r
}

func csrfRequest(r *gin.Engine, method, cookie, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/resource", nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: CSRFCookie, Value: cookie})
	}
	if header != "" {
		req.Header.Set(CSRFHeader, header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCSRFSkipsSafeMethods(t *testing.T) {
	r := csrfRouter()

	w := csrfRequest(r, http.MethodGet, "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCSRFAcceptsMatchingPair(t *testing.T) {
	r := csrfRouter()

	w := csrfRequest(r, http.MethodPost, "tok-1", "tok-1")
	assert.Equal(t, http.StatusOK, w.Code)

	w = csrfRequest(r, http.MethodDelete, "tok-1", "tok-1")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCSRFRejectsMissingOrMismatched(t *testing.T) {
	r := csrfRouter()

	w := csrfRequest(r, http.MethodPost, "", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = csrfRequest(r, http.MethodPost, "tok-1", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = csrfRequest(r, http.MethodPost, "", "tok-1")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = csrfRequest(r, http.MethodPost, "tok-1", "tok-2")
	assert.Equal(t, http.StatusForbidden, w.Code)
}
