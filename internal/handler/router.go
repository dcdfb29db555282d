package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mcbn/tradepost/internal/config"
	"github.com/mcbn/tradepost/internal/middleware"
	"github.com/mcbn/tradepost/internal/service"
	"github.com/mcbn/tradepost/internal/world"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps is everything the HTTP surface talks to.
type Deps struct {
	Config      *config.Config
	World       *world.World
	Shops       *service.ShopRegistry
	Exchange    *service.Exchange
	Auctions    *service.AuctionEngine
	Ledger      *service.Ledger
	Orders      *service.OrderBook
	Prompts     *service.PromptSessions
	Keepers     *service.KeeperManager
	Journeys    *service.Journeys
	Audit       *service.AuditService
	Limiter     *service.PlayerLimiter
	Idempotency middleware.IdempotencyStore
	Hub         *EventHub
}

func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(middleware.ErrorHandler())
	r.Use(middleware.MetricsMiddleware())
	if d.Audit != nil {
		r.Use(middleware.AuditMiddleware(d.Audit))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "tradepost", "read_only": cfg.Server.ReadOnly})
	})
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	shops := NewShopHandler(d.Shops, d.Exchange)
	auctions := NewAuctionHandler(d.Auctions, d.World, time.Duration(cfg.Auctions.DefaultDurationMinutes)*time.Minute)
	claims := NewClaimHandler(d.Ledger)
	keepers := NewKeeperHandler(d.Keepers, d.Journeys, d.Exchange)
	orders := NewOrderHandler(d.Orders, d.Prompts)
	players := NewPlayerHandler(d.World)

	v1 := r.Group("/v1")
	v1.Use(middleware.MarkAdmin(cfg))
	v1.Use(middleware.AuthMiddleware(cfg, d.World))
	v1.Use(middleware.RateLimitMiddleware(d.Limiter))
	v1.Use(middleware.ReadOnlyMiddleware(cfg.Server.ReadOnly))
	if d.Idempotency != nil {
		v1.Use(middleware.IdempotencyMiddleware(d.Idempotency))
	}
	{
		v1.POST("/shops", shops.Create)
		v1.GET("/shops", shops.List)
		v1.GET("/shops/:pos", shops.Get)
		v1.DELETE("/shops/:pos", shops.Remove)
		v1.POST("/shops/:pos/buy", shops.Buy)

		v1.POST("/auctions", auctions.Create)
		v1.GET("/auctions", auctions.Browse)
		v1.GET("/auctions/mine", auctions.Mine)
		v1.GET("/auctions/:id", auctions.Get)
		v1.POST("/auctions/:id/lots/:lot/bids", auctions.Bid)
		v1.DELETE("/auctions/:id", auctions.Cancel)
		v1.DELETE("/auctions", auctions.CancelAll)

		v1.POST("/claims", claims.Claim)
		v1.GET("/claims", claims.Pending)

		v1.POST("/keepers", keepers.Create)
		v1.GET("/keepers", keepers.List)
		v1.POST("/keepers/teleport", keepers.Teleport)
		v1.POST("/keepers/hire", keepers.Hire)
		v1.GET("/keepers/hire", keepers.Journeys)
		v1.DELETE("/keepers/hire", keepers.CancelHire)
		v1.DELETE("/keepers/:id", keepers.Remove)
		v1.POST("/keepers/:id/links/:pos", keepers.Link)
		v1.DELETE("/keepers/:id/links/:pos", keepers.Unlink)
		v1.GET("/keepers/:id/shops", keepers.Shops)
		v1.POST("/keepers/:id/shops/:pos/buy", keepers.Buy)

		v1.POST("/orders/prompt", orders.Prompt)
		v1.PUT("/orders", orders.PutText)
		v1.GET("/orders", orders.Get)
		v1.DELETE("/orders", orders.Delete)

		v1.GET("/players/:id/messages", players.Messages)

		if d.Hub != nil {
			v1.GET("/events", d.Hub.Serve)
		}
	}

	admin := r.Group("/v1/audit")
	admin.Use(middleware.AdminMiddleware(cfg))
	if d.Audit != nil {
		admin.GET("", NewAuditHandler(d.Audit).List)
	}

	return r
}
