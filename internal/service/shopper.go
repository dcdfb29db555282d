package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mcbn/tradepost/internal/market"
	"github.com/mcbn/tradepost/internal/model"
	"github.com/mcbn/tradepost/internal/pkg/logger"
	"github.com/mcbn/tradepost/internal/pkg/metrics"
	"github.com/mcbn/tradepost/internal/world"
)

// RouteStep is one shop visit. Target is where the keeper stands at the shop.
type RouteStep struct {
	Shop   model.Shop `json:"shop"`
	Target model.Vec3 `json:"target"`
}

// BuildRoute visits every shop selling something the order still wants,
// each shop once, always walking to the nearest unvisited one next. Shops are
// pre-sorted by bundle price so equal distances favour the cheaper shop.
func BuildRoute(start model.Vec3, order *model.PurchaseOrder, shops []model.Shop) []RouteStep {
	candidates := make([]model.Shop, 0, len(shops))
	for _, s := range shops {
		if order.Remaining(s.Template.Type) > 0 {
			candidates = append(candidates, s)
		}
	}
	market.SortByBundlePrice(candidates)

	route := make([]RouteStep, 0, len(candidates))
	cur := start
	for len(candidates) > 0 {
		best := 0
		bestDist := cur.DistanceSq(candidates[0].Pos.Standing())
		for i := 1; i < len(candidates); i++ {
			if d := cur.DistanceSq(candidates[i].Pos.Standing()); d < bestDist {
				best, bestDist = i, d
			}
		}
		next := candidates[best]
		route = append(route, RouteStep{Shop: next, Target: next.Pos.Standing()})
		cur = next.Pos.Standing()
		candidates = append(candidates[:best], candidates[best+1:]...)
	}
	return route
}

// FeeSink accounts for shopper fees. Fees leave circulation; the sink only counts them.
type FeeSink struct {
	mu       sync.Mutex
	total    map[string]int
	byPlayer map[string]map[string]int
}

func NewFeeSink() *FeeSink {
	return &FeeSink{total: make(map[string]int), byPlayer: make(map[string]map[string]int)}
}

func (f *FeeSink) Record(player, currency string, amount int) {
	if amount <= 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.total[currency] += amount
	if f.byPlayer[player] == nil {
		f.byPlayer[player] = make(map[string]int)
	}
	f.byPlayer[player][currency] += amount
}

func (f *FeeSink) Total(currency string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total[currency]
}

func (f *FeeSink) PaidBy(player, currency string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byPlayer[player][currency]
}

// Shopper makes the purchase decision at each shop of a route.
type Shopper struct {
	host     world.Host
	exchange *Exchange
	orders   *OrderBook
	fees     *FeeSink
	log      *slog.Logger
}

func NewShopper(host world.Host, exchange *Exchange, orders *OrderBook, fees *FeeSink) *Shopper {
	if fees == nil {
		fees = NewFeeSink()
	}
	return &Shopper{host: host, exchange: exchange, orders: orders, fees: fees, log: logger.Component("shopper")}
}

func (s *Shopper) Fees() *FeeSink { return s.fees }

// ConsiderPurchase buys as much of the shop's item as the order still needs,
// within the order's price cap and the owner's funds. order is updated in
// place and, when it is stored in the order book, there as well.
func (s *Shopper) ConsiderPurchase(ctx context.Context, order *model.PurchaseOrder, shop model.Shop) model.StepOutcome {
	item := shop.Template.Type
	out := model.StepOutcome{Shop: shop.Key(), Item: item}
	defer func() { metrics.ShopperSteps.WithLabelValues(string(out.Status)).Inc() }()

	if ctx.Err() != nil {
		out.Status = model.StepCancelled
		return out
	}
	if shop.BundleSize <= 0 || shop.Price <= 0 {
		out.Status = model.StepUnreadable
		out.Reason = "shop has no valid bundle or price"
		return out
	}
	need := order.Remaining(item)
	if need <= 0 {
		out.Status = model.StepSatisfied
		return out
	}
	perItem := market.CeilUnitPrice(shop.Price, shop.BundleSize)
	if limit := order.MaxPriceFor(item); limit > 0 && perItem > limit {
		out.Status = model.StepTooExpensive
		out.Reason = fmt.Sprintf("%s @ %d/item > max %d", item, perItem, limit)
		return out
	}

	s.host.Tick(func() {
		container, ok := s.host.ContainerAt(shop.Pos)
		if !ok {
			out.Status = model.StepUnreadable
			return
		}
		stockBundles := container.Count(shop.Template) / shop.BundleSize
		if stockBundles <= 0 {
			out.Status = model.StepNoStock
			return
		}
		bundles := min(market.BundlesFor(need, shop.BundleSize), stockBundles)
		total := bundles * shop.Price
		fee := market.Fee(total, order.FeePercent)

		owner, ok := s.host.Online(order.Owner)
		if !ok {
			out.Status = model.StepOwnerOffline
			out.Reason = "owner offline"
			return
		}
		if balance := owner.Holdings().CountType(shop.Currency); balance < total+fee {
			out.Status = model.StepNoFunds
			out.Reason = fmt.Sprintf("not enough %s for %s", shop.Currency, item)
			return
		}

		receipt, err := s.exchange.execute(ctx, owner, shop, bundles)
		if err != nil {
			out.Status = model.StepFailed
			out.Reason = err.Error()
			return
		}
		taken := owner.Holdings().RemoveType(shop.Currency, fee)
		s.fees.Record(order.Owner, shop.Currency, taken)

		out.Status = model.StepPurchased
		out.Bundles = bundles
		out.Items = receipt.Items.Amount
		out.Paid = receipt.Paid
		out.Fee = taken
	})
	if out.Status != model.StepPurchased {
		return out
	}

	order.Fulfill(item, out.Items)
	if s.orders != nil {
		if _, err := s.orders.Update(ctx, order.ID, func(o *model.PurchaseOrder) { o.Fulfill(item, out.Items) }); err != nil {
			s.log.Debug("order not in book, progress kept on journey copy", "order_id", order.ID)
		}
	}
	s.log.Info("shopper purchase", "player", order.Owner, "shop", out.Shop, "item", item, "amount", out.Items, "paid", out.Paid, "fee", out.Fee)
	return out
}

// StepMessage is the progress line sent to the order owner.
func StepMessage(o model.StepOutcome) string {
	switch o.Status {
	case model.StepPurchased:
		return fmt.Sprintf("Bought %dx %s for %d + fee %d.", o.Items, o.Item, o.Paid, o.Fee)
	case model.StepTooExpensive:
		return "Skipped (too expensive): " + o.Reason
	case model.StepOwnerOffline:
		return "Owner offline, skipping purchase."
	case model.StepNoFunds:
		return "Skipped: " + o.Reason
	case model.StepFailed:
		return fmt.Sprintf("Purchase of %s failed: %s", o.Item, o.Reason)
	}
	return ""
}
