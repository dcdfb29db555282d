package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mcbn/tradepost/internal/model"
	"github.com/mcbn/tradepost/internal/pkg/apperrors"
	"github.com/mcbn/tradepost/internal/pkg/logger"
	"github.com/mcbn/tradepost/internal/pkg/metrics"
	"github.com/mcbn/tradepost/internal/world"
)

// Exchange executes single shop purchases. Both parties are physically present
// (buyer online, container loaded), so it never touches the claims ledger.
type Exchange struct {
	host world.Host
	bus  *Bus
	log  *slog.Logger
}

func NewExchange(host world.Host, bus *Bus) *Exchange {
	return &Exchange{host: host, bus: bus, log: logger.Component("exchange")}
}

// Purchase buys bundles from shop on behalf of buyerID.
func (e *Exchange) Purchase(ctx context.Context, buyerID string, shop model.Shop, bundles int) (model.Receipt, error) {
	buyer, ok := e.host.Online(buyerID)
	if !ok {
		return model.Receipt{}, apperrors.NewValidation("buyer is not online")
	}
	var (
		receipt model.Receipt
		err     error
	)
	e.host.Tick(func() {
		receipt, err = e.execute(ctx, buyer, shop, bundles)
	})
	return receipt, err
}

// MaxAffordable is the largest bundle count both stock and the buyer's funds allow.
func (e *Exchange) MaxAffordable(buyerID string, shop model.Shop) int {
	buyer, ok := e.host.Online(buyerID)
	if !ok || shop.BundleSize <= 0 || shop.Price <= 0 {
		return 0
	}
	container, ok := e.host.ContainerAt(shop.Pos)
	if !ok {
		return 0
	}
	byStock := container.Count(shop.Template) / shop.BundleSize
	byFunds := buyer.Holdings().CountType(shop.Currency) / shop.Price
	return min(byStock, byFunds)
}

// execute must run inside host.Tick.
func (e *Exchange) execute(ctx context.Context, buyer world.Participant, shop model.Shop, bundles int) (model.Receipt, error) {
	if bundles <= 0 {
		metrics.PurchasesTotal.WithLabelValues("invalid").Inc()
		return model.Receipt{}, apperrors.NewValidation("bundle count must be positive")
	}
	container, ok := e.host.ContainerAt(shop.Pos)
	if !ok {
		metrics.PurchasesTotal.WithLabelValues("not_a_container").Inc()
		return model.Receipt{}, apperrors.Newf(apperrors.ErrNotAContainer, "shop at %s has no container", shop.Key())
	}

	if shop.BundleSize <= 0 || shop.Price <= 0 {
		metrics.PurchasesTotal.WithLabelValues("invalid").Inc()
		return model.Receipt{}, apperrors.Newf(apperrors.ErrValidation, "shop at %s has no valid bundle or price", shop.Key())
	}

	// compare in bundles so bundles*size cannot overflow
	inStock := container.Count(shop.Template) / shop.BundleSize
	if bundles > inStock {
		metrics.PurchasesTotal.WithLabelValues("insufficient_stock").Inc()
		return model.Receipt{}, apperrors.Newf(apperrors.ErrInsufficientStock,
			"shop has %d bundles in stock", inStock).WithLimit(inStock)
	}
	need := bundles * shop.BundleSize

	holdings := buyer.Holdings()
	balance := holdings.CountType(shop.Currency)
	if affordable := balance / shop.Price; bundles > affordable {
		metrics.PurchasesTotal.WithLabelValues("insufficient_funds").Inc()
		return model.Receipt{}, apperrors.Newf(apperrors.ErrInsufficientFunds,
			"%d bundles cost %d %s each, have %d", bundles, shop.Price, shop.Currency, balance).WithLimit(affordable)
	}
	cost := bundles * shop.Price

	if err := e.bus.Publish(ctx, model.Event{
		Kind:    model.EventShopPurchased,
		Actor:   buyer.ID(),
		Payload: model.Receipt{Shop: shop.Key(), Buyer: buyer.ID(), Bundles: bundles, Items: shop.Template.WithAmount(need), Paid: cost, Currency: shop.Currency},
	}); err != nil {
		metrics.PurchasesTotal.WithLabelValues("cancelled").Inc()
		return model.Receipt{}, err
	}

	// (a) currency out of the buyer
	removed := holdings.RemoveType(shop.Currency, cost)
	if removed != cost {
		world.GiveOrDrop(e.host, buyer, model.NewStack(shop.Currency, removed))
		metrics.PurchasesTotal.WithLabelValues("error").Inc()
		return model.Receipt{}, apperrors.New(apperrors.ErrInternal, "buyer holdings changed during purchase",
			fmt.Errorf("removed %d of %d %s", removed, cost, shop.Currency))
	}

	// (b) items out of the container, undo (a) if short
	taken := container.Remove(shop.Template, need)
	if taken < need {
		world.AddOrDrop(e.host, container, shop.Pos, shop.Template.WithAmount(taken))
		world.GiveOrDrop(e.host, buyer, model.NewStack(shop.Currency, cost))
		metrics.PurchasesTotal.WithLabelValues("rolled_back").Inc()
		e.log.Warn("purchase rolled back", "shop", shop.Key(), "player", buyer.ID(), "wanted", need, "taken", taken)
		return model.Receipt{}, apperrors.Newf(apperrors.ErrInsufficientStock,
			"shop stock changed during purchase").WithLimit(taken / shop.BundleSize)
	}

	receipt := model.Receipt{
		Shop:     shop.Key(),
		Buyer:    buyer.ID(),
		Bundles:  bundles,
		Items:    shop.Template.WithAmount(need),
		Paid:     cost,
		Currency: shop.Currency,
	}
	// (c) items to the buyer, (d) currency into the shop container
	receipt.DroppedItems = world.GiveOrDrop(e.host, buyer, shop.Template.WithAmount(need))
	receipt.DroppedCurrency = world.AddOrDrop(e.host, container, shop.Pos, model.NewStack(shop.Currency, cost))

	metrics.PurchasesTotal.WithLabelValues("success").Inc()
	e.log.Info("purchase completed", "shop", shop.Key(), "player", buyer.ID(), "bundles", bundles, "amount", cost)
	_ = e.bus.Publish(ctx, model.Event{Kind: model.EventShopPurchaseCompleted, Actor: buyer.ID(), Payload: receipt})
	e.bus.Tutorial(buyer.ID(), "shop.buy")
	return receipt, nil
}
