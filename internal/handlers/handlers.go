package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"picstoria/api/internal/config"
	"picstoria/api/internal/email"
	"picstoria/api/internal/imageapi"
	"picstoria/api/internal/middleware"
	"picstoria/api/internal/oauth"
	"picstoria/api/internal/repository"
	"picstoria/api/internal/security"
	"picstoria/api/internal/service"
)

type HandlerSet struct {
	log      zerolog.Logger
	cfg      *config.AppConfig
	auth     *service.AuthService
	photos   *service.PhotoService
	users    service.UserStore
	sessions service.SessionStore
	codec    *security.TokenCodec
	provider oauth.IdentityProvider
	db       *pgxpool.Pool
	cache    *redis.Client
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, cache *redis.Client, cfg *config.AppConfig) HandlerSet {
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	photoRepo := repository.NewPhotoRepository(db)
	historyRepo := repository.NewSearchHistoryRepository(db)

	codec := security.NewTokenCodec(
		cfg.Security.JWTAccessSecret,
		cfg.Security.JWTRefreshSecret,
		cfg.Security.JWTAccessTTL,
		cfg.Security.JWTRefreshTTL,
	)
	mailer := email.NewResendMailer(cfg.Email, cfg.FrontendURL)
	provider := oauth.NewGoogleProvider(cfg.Google)
	analyzer := imageapi.NewMirAIClient(cfg.MirAI)
	searcher := imageapi.NewUnsplashClient(cfg.Unsplash)

	authService := service.NewAuthService(userRepo, sessionRepo, codec, mailer, cfg.Security, log)
	photoService := service.NewPhotoService(photoRepo, historyRepo, analyzer, searcher, cache, cfg.Unsplash, log)

	return HandlerSet{
		log:      log,
		cfg:      cfg,
		auth:     authService,
		photos:   photoService,
		users:    userRepo,
		sessions: sessionRepo,
		codec:    codec,
		provider: provider,
		db:       db,
		cache:    cache,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	limited := func(scope string) gin.HandlerFunc {
		return middleware.RateLimit(h.cache, h.cfg.RateLimit, scope, h.log)
	}
	csrf := middleware.CSRF()
	authed := middleware.Auth(h.codec, h.users, h.sessions)

	auth := router.Group("/auth")
	{
		auth.GET("/csrf", h.CSRFToken)
		auth.GET("/verify-email", h.VerifyEmail)
		auth.GET("/google", h.GoogleRedirect)
		auth.GET("/google/callback", h.GoogleCallback)

		auth.POST("/signup", csrf, h.Signup)
		auth.POST("/login", limited("login"), csrf, h.Login)
		auth.POST("/logout", csrf, h.Logout)
		auth.POST("/resend-verification", limited("resend"), csrf, h.ResendVerification)
		auth.POST("/forgot-password", limited("forgot"), csrf, h.ForgotPassword)
		auth.POST("/reset-password", csrf, h.ResetPassword)

		// Refresh is exempt from CSRF: the jid cookie is path-scoped to
		// /api/auth, so cross-site forms cannot usefully target it.
		auth.POST("/refresh", h.Refresh)

		auth.GET("/me", authed, h.Me)
	}

	photos := router.Group("/photos", authed, csrf)
	{
		photos.POST("", h.SavePhoto)
		photos.GET("", h.Collection)
		photos.GET("/:photoId", h.PhotoPage)
		photos.POST("/:photoId/tags", h.AddTag)
		photos.DELETE("/:photoId/tags/:tag", h.RemoveTag)
	}

	search := router.Group("/search", authed)
	{
		search.GET("/photos", h.SearchByTag)
		search.GET("/external", h.SearchExternal)
	}

	router.GET("/search-history", authed, h.SearchHistory)
}
