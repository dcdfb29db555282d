package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mcbn/tradepost/internal/middleware"
	"github.com/mcbn/tradepost/internal/model"
	"github.com/mcbn/tradepost/internal/pkg/apperrors"
	"github.com/mcbn/tradepost/internal/service"
)

type AuctionHandler struct {
	engine          *service.AuctionEngine
	players         middleware.PlayerDirectory
	defaultDuration time.Duration
}

func NewAuctionHandler(engine *service.AuctionEngine, players middleware.PlayerDirectory, defaultDuration time.Duration) *AuctionHandler {
	return &AuctionHandler{engine: engine, players: players, defaultDuration: defaultDuration}
}

type auctionView struct {
	*model.Auction
	EndsAt    time.Time `json:"ends_at"`
	Remaining string    `json:"remaining"`
}

func (h *AuctionHandler) view(a *model.Auction) auctionView {
	return auctionView{Auction: a, EndsAt: a.EndsAt(), Remaining: service.FormatDuration(h.engine.Remaining(a))}
}

func (h *AuctionHandler) views(list []*model.Auction) []auctionView {
	out := make([]auctionView, 0, len(list))
	for _, a := range list {
		out = append(out, h.view(a))
	}
	return out
}

// Create starts an auction. Each lot names an inventory slot (or an explicit item);
// one unit of it is escrowed.
func (h *AuctionHandler) Create(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	var req model.CreateAuctionRequest
	if !bind(c, &req) {
		return
	}
	player, found := h.players.Player(owner)
	if !found {
		fail(c, apperrors.Newf(apperrors.ErrAuthFailed, "unknown player %s", owner))
		return
	}

	lots := make([]service.LotInput, 0, len(req.Lots))
	for i, l := range req.Lots {
		var item model.ItemStack
		if l.Item != nil {
			item = l.Item.WithAmount(l.Item.Amount)
			item.Type = strings.ToUpper(item.Type)
		} else {
			stack, ok := player.Inventory().Slot(l.Slot)
			if !ok {
				fail(c, apperrors.Newf(apperrors.ErrValidation, "lot %d: inventory slot %d is empty", i, l.Slot))
				return
			}
			item = stack
		}
		lots = append(lots, service.LotInput{Item: item, StartingBid: l.StartingBid})
	}

	duration := h.defaultDuration
	if req.Duration != "" {
		duration = service.ParseDuration(req.Duration)
	}

	auction, err := h.engine.Create(c.Request.Context(), owner, lots, duration)
	if err != nil {
		fail(c, err)
		return
	}
	middleware.AddAuditContext(c, "auction", auction.ID)
	c.JSON(http.StatusCreated, h.view(auction))
}

func (h *AuctionHandler) Browse(c *gin.Context) {
	c.JSON(http.StatusOK, h.views(h.engine.Browse()))
}

func (h *AuctionHandler) Mine(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.views(h.engine.ListByOwner(owner)))
}

func (h *AuctionHandler) Get(c *gin.Context) {
	a, found := h.engine.Get(c.Param("id"))
	if !found {
		fail(c, apperrors.Newf(apperrors.ErrAuctionNotFound, "auction %s not found", c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, h.view(a))
}

func (h *AuctionHandler) Bid(c *gin.Context) {
	bidder, ok := caller(c)
	if !ok {
		return
	}
	var req model.BidRequest
	if !bind(c, &req) {
		return
	}
	auctionID, lotID := c.Param("id"), c.Param("lot")
	lot, err := h.engine.Bid(c.Request.Context(), bidder, auctionID, lotID, req.Amount)
	if err != nil {
		fail(c, err)
		return
	}
	middleware.AddAuditContext(c, "auction", auctionID)
	middleware.AddAuditContext(c, "lot", lotID)
	middleware.AddAuditContext(c, "amount", req.Amount)
	c.JSON(http.StatusOK, lot)
}

func (h *AuctionHandler) Cancel(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if err := h.engine.Cancel(c.Request.Context(), owner, id); err != nil {
		fail(c, err)
		return
	}
	middleware.AddAuditContext(c, "auction", id)
	c.JSON(http.StatusOK, gin.H{"cancelled": []string{id}})
}

// CancelAll withdraws every own auction that has no bids yet.
func (h *AuctionHandler) CancelAll(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	ids := h.engine.CancelAllOwned(c.Request.Context(), owner)
	if ids == nil {
		ids = []string{}
	}
	middleware.AddAuditContext(c, "cancelled", len(ids))
	c.JSON(http.StatusOK, gin.H{"cancelled": ids})
}
