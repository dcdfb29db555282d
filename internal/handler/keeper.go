package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mcbn/tradepost/internal/middleware"
	"github.com/mcbn/tradepost/internal/model"
	"github.com/mcbn/tradepost/internal/service"
)

type KeeperHandler struct {
	keepers  *service.KeeperManager
	journeys *service.Journeys
	exchange *service.Exchange
}

func NewKeeperHandler(keepers *service.KeeperManager, journeys *service.Journeys, exchange *service.Exchange) *KeeperHandler {
	return &KeeperHandler{keepers: keepers, journeys: journeys, exchange: exchange}
}

// Shops is the storefront a customer sees when opening a shopkeeper.
func (h *KeeperHandler) Shops(c *gin.Context) {
	shops, err := h.keepers.Storefront(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"keeper": c.Param("id"), "shops": shops})
}

// Buy purchases from one of the keeper's linked shops.
func (h *KeeperHandler) Buy(c *gin.Context) {
	buyer, ok := caller(c)
	if !ok {
		return
	}
	pos, ok := posParam(c, "pos")
	if !ok {
		return
	}
	var req model.BuyRequest
	if !bind(c, &req) {
		return
	}
	shop, err := h.keepers.StorefrontShop(c.Param("id"), pos)
	if err != nil {
		fail(c, err)
		return
	}
	middleware.AddAuditContext(c, "keeper", c.Param("id"))
	purchase(c, h.exchange, buyer, shop, req)
}

// Create places a shopkeeper where the caller stands.
func (h *KeeperHandler) Create(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	k, err := h.keepers.Create(c.Request.Context(), owner)
	if err != nil {
		fail(c, err)
		return
	}
	middleware.AddAuditContext(c, "keeper", k.ID)
	c.JSON(http.StatusCreated, k)
}

func (h *KeeperHandler) List(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.keepers.ListByOwner(owner))
}

func (h *KeeperHandler) Link(c *gin.Context) {
	h.changeLink(c, h.keepers.Link)
}

func (h *KeeperHandler) Unlink(c *gin.Context) {
	h.changeLink(c, h.keepers.Unlink)
}

func (h *KeeperHandler) changeLink(c *gin.Context, op func(ctx context.Context, owner, id string, pos model.BlockPos) (*model.ShopKeeper, error)) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	pos, ok := posParam(c, "pos")
	if !ok {
		return
	}
	k, err := op(c.Request.Context(), owner, c.Param("id"), pos)
	if err != nil {
		fail(c, err)
		return
	}
	middleware.AddAuditContext(c, "keeper", k.ID)
	middleware.AddAuditContext(c, "shop", pos.String())
	c.JSON(http.StatusOK, k)
}

func (h *KeeperHandler) Remove(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	k, err := h.keepers.Remove(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	for _, j := range h.journeys.Active(owner) {
		if j.KeeperID == k.ID {
			j.Cancel()
		}
	}
	middleware.AddAuditContext(c, "keeper", k.ID)
	c.JSON(http.StatusOK, k)
}

// Teleport moves the caller to their latest keeper.
func (h *KeeperHandler) Teleport(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	to, err := h.keepers.Teleport(owner)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"position": to})
}

// Hire sends a keeper shopping with the caller's order. Progress arrives in
// the caller's mailbox; the response only confirms the start.
func (h *KeeperHandler) Hire(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	var req model.HireRequest
	if c.Request.ContentLength != 0 && !bind(c, &req) {
		return
	}
	j, err := h.journeys.Hire(c.Request.Context(), owner, req.KeeperID, req.Text)
	if err != nil {
		fail(c, err)
		return
	}
	middleware.AddAuditContext(c, "keeper", j.KeeperID)
	middleware.AddAuditContext(c, "journey", j.ID)
	c.JSON(http.StatusAccepted, j.View())
}

func (h *KeeperHandler) Journeys(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	active := h.journeys.Active(owner)
	views := make([]service.JourneyView, 0, len(active))
	for _, j := range active {
		views = append(views, j.View())
	}
	c.JSON(http.StatusOK, views)
}

func (h *KeeperHandler) CancelHire(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	n := h.journeys.CancelJourney(owner)
	c.JSON(http.StatusOK, gin.H{"cancelled": n})
}
