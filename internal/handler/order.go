package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mcbn/tradepost/internal/middleware"
	"github.com/mcbn/tradepost/internal/model"
	"github.com/mcbn/tradepost/internal/pkg/apperrors"
	"github.com/mcbn/tradepost/internal/service"
)

type OrderHandler struct {
	book    *service.OrderBook
	prompts *service.PromptSessions
}

func NewOrderHandler(book *service.OrderBook, prompts *service.PromptSessions) *OrderHandler {
	return &OrderHandler{book: book, prompts: prompts}
}

type orderView struct {
	*model.PurchaseOrder
	Text string `json:"text"`
}

// Prompt feeds one answer to the caller's order prompt, opening a new prompt when none is active.
func (h *OrderHandler) Prompt(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	var req model.PromptInput
	if c.Request.ContentLength != 0 && !bind(c, &req) {
		return
	}
	reply := h.prompts.Feed(c.Request.Context(), owner, req.Input)
	middleware.AddAuditContext(c, "prompt_state", reply.State)
	c.JSON(http.StatusOK, reply)
}

// PutText replaces the caller's order with the parsed text, one "64x STRING max 2" per line.
func (h *OrderHandler) PutText(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	var req model.OrderTextRequest
	if !bind(c, &req) {
		return
	}
	o, err := h.book.PutText(c.Request.Context(), owner, req.Text)
	if err != nil {
		fail(c, err)
		return
	}
	middleware.AddAuditContext(c, "order", o.ID)
	middleware.AddAuditContext(c, "items", len(o.Wanted))
	c.JSON(http.StatusOK, orderView{PurchaseOrder: o, Text: service.RenderText(o)})
}

func (h *OrderHandler) Get(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	o, found := h.book.ByOwner(owner)
	if !found {
		fail(c, apperrors.New(apperrors.ErrOrderNotFound, "you have no shopping list", nil))
		return
	}
	c.JSON(http.StatusOK, orderView{PurchaseOrder: o, Text: service.RenderText(o)})
}

func (h *OrderHandler) Delete(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	o, found := h.book.ByOwner(owner)
	if !found || !h.book.Delete(c.Request.Context(), o.ID) {
		fail(c, apperrors.New(apperrors.ErrOrderNotFound, "you have no shopping list", nil))
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": o.ID})
}
