package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mcbn/tradepost/internal/middleware"
	"github.com/mcbn/tradepost/internal/pkg/apperrors"
)

// Mailbox is where the economy leaves messages for players.
type Mailbox interface {
	Messages(id string) []string
}

type PlayerHandler struct {
	mail Mailbox
}

func NewPlayerHandler(mail Mailbox) *PlayerHandler {
	return &PlayerHandler{mail: mail}
}

// Messages returns a player's mailbox. Players read their own; admins read anyone's.
func (h *PlayerHandler) Messages(c *gin.Context) {
	id := c.Param("id")
	if id != middleware.PlayerID(c) && !middleware.IsAdmin(c) {
		fail(c, apperrors.New(apperrors.ErrNotOwner, "you can only read your own messages", nil))
		return
	}
	msgs := h.mail.Messages(id)
	if msgs == nil {
		msgs = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"player": id, "messages": msgs})
}
