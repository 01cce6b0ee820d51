package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"picstoria/api/internal/config"
)

// RateLimit is a fixed-window per-IP limiter over redis, applied to the
// credential-guessing surfaces (login, forgot-password, resend). It fails
// open when redis is unreachable.
func RateLimit(client *redis.Client, cfg config.RateLimitConfig, scope string, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled || client == nil {
			c.Next()
			return
		}

		key := fmt.Sprintf("rl:%s:%s", scope, c.ClientIP())

		count, err := client.Incr(c.Request.Context(), key).Result()
		if err != nil {
			log.Warn().Err(err).Str("scope", scope).Msg("rate limit unavailable")
			c.Next()
			return
		}
		if count == 1 {
			if err := client.Expire(c.Request.Context(), key, cfg.Window).Err(); err != nil {
				log.Warn().Err(err).Str("scope", scope).Msg("rate limit expire failed")
			}
		}

		if count > int64(cfg.MaxHits) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests, try again later",
			})
			return
		}

		c.Next()
	}
}
