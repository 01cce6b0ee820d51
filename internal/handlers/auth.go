package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"picstoria/api/internal/middleware"
	"picstoria/api/internal/models"
	"picstoria/api/internal/repository"
	"picstoria/api/internal/security"
	"picstoria/api/internal/service"
)

type signupRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

func (h HandlerSet) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "all fields are required"})
		return
	}

	err := h.auth.Signup(c.Request.Context(), service.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, repository.ErrDuplicateUser):
			c.JSON(http.StatusBadRequest, gin.H{"error": "username or email taken"})
		default:
			h.internalError(c, err)
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Signup successful. Please verify your email.",
	})
}

func (h HandlerSet) VerifyEmail(c *gin.Context) {
	noStore(c)

	err := h.auth.VerifyEmail(c.Request.Context(), c.Query("email"), c.Query("token"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid verification link"})
		case errors.Is(err, service.ErrExpiredOneTimeToken):
			c.JSON(http.StatusBadRequest, gin.H{"message": "Link expired"})
		case errors.Is(err, service.ErrInvalidOneTimeToken):
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid verification link"})
		default:
			h.internalError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Email verified successfully",
	})
}

type emailRequest struct {
	Email string `json:"email" binding:"required"`
}

func (h HandlerSet) ResendVerification(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email is required"})
		return
	}

	err := h.auth.ResendVerification(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, service.ErrAlreadyVerified) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Email already verified"})
			return
		}
		h.internalError(c, err)
		return
	}

	// Identical body whether or not the account exists.
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "If the account exists, a verification email has been sent",
	})
}

type loginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing credentials"})
		return
	}

	result, err := h.auth.Login(c.Request.Context(), service.LoginInput{
		Identifier: req.Identifier,
		Password:   req.Password,
		UserAgent:  c.GetHeader("User-Agent"),
		IPAddress:  c.ClientIP(),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing credentials"})
		case errors.Is(err, service.ErrAccountLocked):
			c.JSON(http.StatusLocked, gin.H{"error": "Account temporarily locked. Try later."})
		case errors.Is(err, service.ErrEmailNotVerified):
			c.JSON(http.StatusForbidden, gin.H{"message": "Please verify your email before logging in"})
		case errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		default:
			h.internalError(c, err)
		}
		return
	}

	h.setAuthCookies(c, result)
	noStore(c)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Login successful.",
		"user":    publicUser(result.User),
	})
}

func (h HandlerSet) Logout(c *gin.Context) {
	h.auth.Logout(c.Request.Context(), h.refreshTokenFrom(c))
	h.clearAuthCookies(c)
	noStore(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (h HandlerSet) Refresh(c *gin.Context) {
	noStore(c)

	result, err := h.auth.Refresh(c.Request.Context(),
		h.refreshTokenFrom(c), c.GetHeader("User-Agent"), c.ClientIP())
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		h.internalError(c, err)
		return
	}

	h.setAuthCookies(c, result)
	c.JSON(http.StatusOK, gin.H{"accessToken": result.AccessToken})
}

func (h HandlerSet) ForgotPassword(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email required"})
		return
	}

	if err := h.auth.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		if errors.Is(err, service.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email required"})
			return
		}
		h.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "If the email exists, a reset link has been sent",
	})
}

type resetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	Email       string `json:"email" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

func (h HandlerSet) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	err := h.auth.ResetPassword(c.Request.Context(), req.Email, req.Token, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		case errors.Is(err, service.ErrExpiredOneTimeToken),
			errors.Is(err, service.ErrInvalidOneTimeToken):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired token"})
		default:
			h.internalError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Password reset successful. Please log in again.",
	})
}

func (h HandlerSet) CSRFToken(c *gin.Context) {
	token, err := security.GenerateCSRFToken()
	if err != nil {
		h.internalError(c, err)
		return
	}

	secure := h.cookieMode(c)
	c.SetCookie(middleware.CSRFCookie, token, 0, "/", "", secure, false)

	noStore(c)
	c.JSON(http.StatusOK, gin.H{"csrfToken": token})
}

func (h HandlerSet) Me(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	noStore(c)
	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":         user.ID,
			"username":   user.Username,
			"email":      user.Email,
			"isVerified": user.IsVerified,
			"createdAt":  user.CreatedAt.Format(time.RFC3339),
		},
	})
}

func currentUser(c *gin.Context) (models.User, bool) {
	userVal, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return models.User{}, false
	}
	user, ok := userVal.(models.User)
	return user, ok
}

func publicUser(user models.User) gin.H {
	return gin.H{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
	}
}

func (h HandlerSet) internalError(c *gin.Context, err error) {
	h.log.Error().Err(err).
		Str("path", c.Request.URL.Path).
		Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
}
