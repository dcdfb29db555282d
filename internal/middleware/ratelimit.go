package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/mcbn/tradepost/internal/pkg/apperrors"
	"github.com/mcbn/tradepost/internal/service"
)

// RateLimitMiddleware applies the caller's token bucket. Must run after AuthMiddleware;
// anonymous requests share one bucket.
func RateLimitMiddleware(limiter *service.PlayerLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := PlayerID(c)
		if key == "" {
			key = "anonymous"
		}
		if !limiter.Allow(key) {
			c.Header("Retry-After", "1")
			c.Error(apperrors.New(apperrors.ErrRateLimited, "rate limit exceeded", nil))
			c.Abort()
			return
		}
		c.Next()
	}
}
