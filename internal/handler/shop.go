package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mcbn/tradepost/internal/middleware"
	"github.com/mcbn/tradepost/internal/model"
	"github.com/mcbn/tradepost/internal/pkg/apperrors"
	"github.com/mcbn/tradepost/internal/service"
)

type ShopHandler struct {
	shops    *service.ShopRegistry
	exchange *service.Exchange
}

func NewShopHandler(shops *service.ShopRegistry, exchange *service.Exchange) *ShopHandler {
	return &ShopHandler{shops: shops, exchange: exchange}
}

func (h *ShopHandler) Create(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	var req model.CreateShopRequest
	if !bind(c, &req) {
		return
	}
	pos, err := model.ParseBlockPos(req.Pos)
	if err != nil {
		fail(c, apperrors.New(apperrors.ErrValidation, err.Error(), nil))
		return
	}

	shop, err := h.shops.Create(c.Request.Context(), service.CreateShopInput{
		Owner:      owner,
		Pos:        pos,
		Template:   req.Template,
		BundleSize: req.BundleSize,
		Price:      req.Price,
		Currency:   req.Currency,
		Facing:     req.Facing,
	})
	if err != nil {
		fail(c, err)
		return
	}
	middleware.AddAuditContext(c, "shop", shop.Key())
	c.JSON(http.StatusCreated, shop)
}

func (h *ShopHandler) Remove(c *gin.Context) {
	actor, ok := caller(c)
	if !ok {
		return
	}
	pos, ok := posParam(c, "pos")
	if !ok {
		return
	}
	shop, err := h.shops.Remove(c.Request.Context(), actor, pos, middleware.IsAdmin(c))
	if err != nil {
		fail(c, err)
		return
	}
	middleware.AddAuditContext(c, "shop", shop.Key())
	c.JSON(http.StatusOK, shop)
}

// Buy purchases a number of bundles, or as many as stock and funds allow with {"max": true}.
func (h *ShopHandler) Buy(c *gin.Context) {
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
	shop, found := h.shops.Get(pos)
	if !found {
		fail(c, apperrors.Newf(apperrors.ErrShopNotFound, "no shop at %s", pos))
		return
	}
	purchase(c, h.exchange, buyer, shop, req)
}

func purchase(c *gin.Context, exchange *service.Exchange, buyer string, shop model.Shop, req model.BuyRequest) {
	bundles := req.Bundles
	if req.Max {
		bundles = exchange.MaxAffordable(buyer, shop)
		if bundles == 0 {
			fail(c, apperrors.New(apperrors.ErrInsufficientFunds, "you cannot afford a single bundle from this shop", nil).WithLimit(0))
			return
		}
	}

	receipt, err := exchange.Purchase(c.Request.Context(), buyer, shop, bundles)
	if err != nil {
		fail(c, err)
		return
	}
	middleware.AddAuditContext(c, "shop", shop.Key())
	middleware.AddAuditContext(c, "bundles", receipt.Bundles)
	middleware.AddAuditContext(c, "paid", receipt.Paid)
	c.JSON(http.StatusOK, receipt)
}

func (h *ShopHandler) Get(c *gin.Context) {
	pos, ok := posParam(c, "pos")
	if !ok {
		return
	}
	info, err := h.shops.Info(pos)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// List filters by ?owner= and ?item=. With ?item= the result is the price-sorted offer book.
func (h *ShopHandler) List(c *gin.Context) {
	owner := c.Query("owner")
	item := strings.ToUpper(c.Query("item"))

	if item != "" && owner == "" {
		book := h.shops.Offers(item)
		c.JSON(http.StatusOK, gin.H{"item": book.Item, "offers": book.GetCopy()})
		return
	}

	var shops []model.Shop
	switch {
	case owner != "":
		shops = h.shops.ByOwner(owner)
	default:
		shops = h.shops.All()
	}
	if item != "" {
		filtered := shops[:0]
		for _, s := range shops {
			if s.Template.Type == item {
				filtered = append(filtered, s)
			}
		}
		shops = filtered
	}
	c.JSON(http.StatusOK, shops)
}
