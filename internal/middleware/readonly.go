package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mcbn/tradepost/internal/pkg/apperrors"
)

// ReadOnlyMiddleware blocks writes during maintenance. Claims stay open so
// players can still collect what they are owed.
func ReadOnlyMiddleware(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}

		if c.Request.Method == http.MethodPost && c.FullPath() == "/v1/claims" {
			c.Next()
			return
		}

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
		default:
			c.Error(apperrors.New(apperrors.ErrReadOnly, "read-only mode enabled", nil))
			c.Abort()
		}
	}
}
