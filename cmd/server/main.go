package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcbn/tradepost/internal/config"
	"github.com/mcbn/tradepost/internal/handler"
	"github.com/mcbn/tradepost/internal/middleware"
	"github.com/mcbn/tradepost/internal/pkg/logger"
	"github.com/mcbn/tradepost/internal/repository"
	"github.com/mcbn/tradepost/internal/service"
	"github.com/mcbn/tradepost/internal/world"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// persistence is what the chosen backend provides.
type persistence struct {
	store       service.Store
	audit       service.AuditRepo
	idempotency middleware.IdempotencyStore
	db          *gorm.DB
	closeFn     func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)

	// 1. World
	w := world.New(cfg.Economy.InventorySlots, cfg.Economy.MaxStackSize)
	if err := world.Seed(w, cfg.World); err != nil {
		log.Fatalf("Failed to seed world: %v", err)
	}

	// 2. Persistence (Postgres > Redis > Memory)
	p := openPersistence(cfg)
	defer p.closeFn()

	// 3. Core services
	bus := service.NewBus()
	shops := service.NewShopRegistry(p.store, w, w, bus, cfg.Economy.Currency)
	exchange := service.NewExchange(w, bus)
	ledger := service.NewLedger(p.store, w, bus, cfg.Economy.ClaimStackSize)
	auctions := service.NewAuctionEngine(p.store, ledger, w, bus, nil, nil, service.AuctionSettings{
		Currency:    cfg.Economy.Currency,
		MinDuration: time.Duration(cfg.Auctions.MinDurationMinutes) * time.Minute,
		MaxDuration: time.Duration(cfg.Auctions.MaxDurationHours) * time.Hour,
	})
	orders := service.NewOrderBook(p.store, world.NewCatalog(), cfg.Shopkeepers.ShopperFeePercent)
	keepers := service.NewKeeperManager(p.store, w, w, shops, cfg.Shopkeepers.Enabled)
	shopper := service.NewShopper(w, exchange, orders, service.NewFeeSink())

	var mover service.Mover
	if cfg.Shopkeepers.Movement == "walk" {
		tick := time.Duration(cfg.Shopkeepers.TickMs) * time.Millisecond
		mover = service.NewWalkMover(w, cfg.Shopkeepers.WalkSpeed, cfg.Shopkeepers.StepTeleportFallback, tick)
	}
	journeys := service.NewJourneys(shopper, keepers, shops, orders, w, w, mover)

	auditSvc, err := service.NewAuditService("./logs", p.audit)
	if err != nil {
		log.Fatalf("Failed to initialize audit service: %v", err)
	}

	// 4. Restore persisted state. Shops come first so keepers can resolve their links.
	ctx := context.Background()
	restore := []struct {
		name string
		load func(context.Context) (int, error)
	}{
		{"shops", shops.Load},
		{"keepers", keepers.Load},
		{"orders", orders.Load},
		{"claims", ledger.Load},
		{"auctions", auctions.Load},
	}
	for _, r := range restore {
		n, err := r.load(ctx)
		if err != nil {
			logger.Error("Failed to restore state", "set", r.name, "error", err)
			continue
		}
		logger.Info("Restored state", "set", r.name, "count", n)
	}

	hub := handler.NewEventHub()
	bus.Subscribe(hub)

	// 5. HTTP
	router := handler.NewRouter(handler.Deps{
		Config:      cfg,
		World:       w,
		Shops:       shops,
		Exchange:    exchange,
		Auctions:    auctions,
		Ledger:      ledger,
		Orders:      orders,
		Prompts:     service.NewPromptSessions(orders),
		Keepers:     keepers,
		Journeys:    journeys,
		Audit:       auditSvc,
		Limiter:     service.NewPlayerLimiter(cfg.RateLimit.QPS, cfg.RateLimit.Burst),
		Idempotency: p.idempotency,
		Hub:         hub,
	})
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		logger.Info("Tradepost started", "port", cfg.Server.Port, "read_only", cfg.Server.ReadOnly)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		interval := time.Duration(cfg.Auctions.ReminderIntervalMinutes) * time.Minute
		return service.NewClaimReminder(ledger, w, interval).Run(gctx)
	})
	g.Go(func() error {
		return hub.Run(gctx)
	})
	if p.db != nil {
		g.Go(func() error {
			runCleanup(gctx, cfg, p.db)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", "error", err)
	}

	journeys.Stop()
	auctions.Stop()
	auditSvc.Close()
	logger.Info("Server exiting")
}

func openPersistence(cfg *config.Config) persistence {
	if cfg.Database.DSN != "" {
		db, err := repository.NewDB(cfg)
		if err == nil {
			err = repository.Migrate(db)
		}
		if err == nil {
			logger.Info("Connected to PostgreSQL")
			return persistence{
				store:       repository.NewPostgresStore(db),
				audit:       repository.NewPostgresAuditRepo(db),
				idempotency: repository.NewPostgresIdempotencyStore(db),
				db:          db,
				closeFn: func() {
					if sqlDB, err := db.DB(); err == nil {
						sqlDB.Close()
					}
				},
			}
		}
		logger.Error("Failed to open PostgreSQL, trying Redis", "error", err)
	}

	if cfg.Redis.Addr != "" {
		client, err := repository.NewRedisClient(cfg)
		if err == nil {
			logger.Info("Connected to Redis")
			ttl := time.Duration(cfg.Redis.IdempotencyTTLSeconds) * time.Second
			return persistence{
				store:       repository.NewRedisStore(client),
				audit:       repository.NewRedisAuditRepo(client, 10000),
				idempotency: repository.NewRedisIdempotencyStore(client, ttl),
				closeFn:     func() { _ = client.Close() },
			}
		}
		logger.Error("Failed to connect to Redis, falling back to memory", "error", err)
	}

	logger.Warn("No persistent store configured, state lives in memory only")
	return persistence{
		store:       service.NewMemoryStore(),
		idempotency: middleware.NewInMemIdempotencyStore(24 * time.Hour),
		closeFn:     func() {},
	}
}

// runCleanup prunes old idempotency keys and audit rows until ctx ends.
func runCleanup(ctx context.Context, cfg *config.Config, db *gorm.DB) {
	interval := time.Duration(cfg.Database.CleanupIntervalMinutes) * time.Minute
	if interval <= 0 {
		return
	}
	idem := repository.NewPostgresIdempotencyStore(db)
	audit := repository.NewPostgresAuditRepo(db)
	keyAge := time.Duration(cfg.Database.IdempotencyRetentionHours) * time.Hour
	auditAge := time.Duration(cfg.Database.AuditRetentionDays) * 24 * time.Hour

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if keyAge > 0 {
				if err := idem.Cleanup(ctx, keyAge); err != nil {
					logger.Error("Idempotency cleanup failed", "error", err)
				}
			}
			if auditAge > 0 {
				if err := audit.Cleanup(ctx, auditAge); err != nil {
					logger.Error("Audit cleanup failed", "error", err)
				}
			}
		}
	}
}
