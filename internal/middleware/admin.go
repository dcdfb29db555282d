package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/mcbn/tradepost/internal/config"
	"github.com/mcbn/tradepost/internal/pkg/apperrors"
)

const (
	HeaderAdminKey  = "X-Admin-Key"
	ContextAdminKey = "admin"
)

// AdminMiddleware rejects callers without the configured admin key.
func AdminMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isAdmin(cfg, c) {
			if cfg == nil || cfg.Auth.AdminKey == "" {
				c.Error(apperrors.New(apperrors.ErrAuthFailed, "admin key not configured", nil))
			} else {
				c.Error(apperrors.New(apperrors.ErrAuthFailed, "invalid admin key", nil))
			}
			c.Abort()
			return
		}
		c.Set(ContextAdminKey, true)
		c.Next()
	}
}

// MarkAdmin flags requests carrying a valid admin key without requiring one.
// Shop removal uses it to let admins remove any shop.
func MarkAdmin(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isAdmin(cfg, c) {
			c.Set(ContextAdminKey, true)
		}
		c.Next()
	}
}

func IsAdmin(c *gin.Context) bool {
	return c.GetBool(ContextAdminKey)
}

func isAdmin(cfg *config.Config, c *gin.Context) bool {
	return cfg != nil && cfg.Auth.AdminKey != "" && c.GetHeader(HeaderAdminKey) == cfg.Auth.AdminKey
}
