package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mcbn/tradepost/internal/middleware"
	"github.com/mcbn/tradepost/internal/service"
)

type ClaimHandler struct {
	ledger *service.Ledger
}

func NewClaimHandler(ledger *service.Ledger) *ClaimHandler {
	return &ClaimHandler{ledger: ledger}
}

// Claim hands every pending item and currency stack to the caller.
// Claiming with nothing owed returns an empty receipt.
func (h *ClaimHandler) Claim(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	receipt, err := h.ledger.Claim(c.Request.Context(), owner)
	if err != nil {
		fail(c, err)
		return
	}
	middleware.AddAuditContext(c, "items", len(receipt.Items))
	middleware.AddAuditContext(c, "currency", receipt.Currency)
	c.JSON(http.StatusOK, receipt)
}

func (h *ClaimHandler) Pending(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.ledger.Balance(owner))
}
