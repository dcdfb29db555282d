package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/mcbn/tradepost/internal/config"
	"github.com/mcbn/tradepost/internal/pkg/apperrors"
	"github.com/mcbn/tradepost/internal/world"
)

const (
	HeaderPlayerID   = "X-Player-ID"
	ContextPlayerKey = "player_id"
)

// PlayerDirectory resolves caller ids against the world.
type PlayerDirectory interface {
	Player(id string) (*world.Player, bool)
}

// AuthMiddleware resolves X-Player-ID to a known player. With
// auth.require_player off, requests without the header pass anonymously.
func AuthMiddleware(cfg *config.Config, players PlayerDirectory) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderPlayerID)
		if id == "" {
			if cfg != nil && !cfg.Auth.RequirePlayer {
				c.Next()
				return
			}
			c.Error(apperrors.New(apperrors.ErrAuthFailed, "missing "+HeaderPlayerID+" header", nil))
			c.Abort()
			return
		}

		if _, ok := players.Player(id); !ok {
			c.Error(apperrors.Newf(apperrors.ErrAuthFailed, "unknown player %s", id))
			c.Abort()
			return
		}

		c.Set(ContextPlayerKey, id)
		c.Next()
	}
}

// PlayerID returns the authenticated caller, or "" for anonymous requests.
func PlayerID(c *gin.Context) string {
	return c.GetString(ContextPlayerKey)
}
