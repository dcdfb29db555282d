package service

import (
	"context"
	"testing"
	"time"

	"github.com/mcbn/tradepost/internal/model"
	"github.com/mcbn/tradepost/internal/pkg/apperrors"
	"github.com/mcbn/tradepost/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type shopperRig struct {
	w        *world.World
	shops    *ShopRegistry
	orders   *OrderBook
	keepers  *KeeperManager
	shopper  *Shopper
	journeys *Journeys
}

func newShopperRig(mover Mover) *shopperRig {
	w := newWorld()
	store := NewMemoryStore()
	bus := NewBus()
	shops := NewShopRegistry(store, w, w, bus, currency)
	orders := NewOrderBook(store, world.NewCatalog(), 5)
	keepers := NewKeeperManager(store, w, w, shops, true)
	shopper := NewShopper(w, NewExchange(w, bus), orders, NewFeeSink())
	return &shopperRig{
		w:        w,
		shops:    shops,
		orders:   orders,
		keepers:  keepers,
		shopper:  shopper,
		journeys: NewJourneys(shopper, keepers, shops, orders, w, w, mover),
	}
}

func (r *shopperRig) stringShop(t *testing.T, x, bundle, price, stock int) model.Shop {
	t.Helper()
	pos := model.BlockPos{World: "world", X: x, Y: 64}
	c := r.w.PlaceContainer(pos, 27)
	if stock > 0 {
		c.Add(model.NewStack("STRING", stock))
	}
	tmpl := model.NewStack("STRING", 1)
	shop, err := r.shops.Create(context.Background(), CreateShopInput{Owner: "seller", Pos: pos, Template: &tmpl, BundleSize: bundle, Price: price})
	require.NoError(t, err)
	return shop
}

func waitJourney(t *testing.T, j *Journey) {
	t.Helper()
	select {
	case <-j.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("journey did not finish")
	}
}

func TestShopperSkipsOverpricedShopAndBuysFromCheaperOne(t *testing.T) {
	ctx := context.Background()
	r := newShopperRig(nil)
	buyer := addPlayer(r.w, "buyer", diamonds(200))
	r.stringShop(t, 5, 16, 40, 64)
	cheap := r.stringShop(t, 15, 16, 32, 64)
	before := r.w.TotalOf(currency)

	_, err := r.keepers.Create(ctx, "buyer")
	require.NoError(t, err)
	j, err := r.journeys.Hire(ctx, "buyer", "", "64x STRING max 2")
	require.NoError(t, err)
	require.Len(t, j.Route, 2)
	waitJourney(t, j)

	out := j.Outcomes()
	require.Len(t, out, 2)
	assert.Equal(t, model.StepTooExpensive, out[0].Status)
	assert.Equal(t, model.StepPurchased, out[1].Status)
	assert.Equal(t, cheap.Key(), out[1].Shop)
	assert.Equal(t, 4, out[1].Bundles)
	assert.Equal(t, 128, out[1].Paid)
	assert.Equal(t, 6, out[1].Fee)
	assert.Equal(t, JourneyFinished, j.Status())

	assert.Equal(t, 64, buyer.Inventory().CountType("STRING"))
	assert.Equal(t, 200-128-6, buyer.Inventory().CountType(currency))
	assert.Equal(t, 6, r.shopper.Fees().Total(currency))
	assert.Equal(t, 6, r.shopper.Fees().PaidBy("buyer", currency))
	assert.Equal(t, before, r.w.TotalOf(currency)+r.shopper.Fees().Total(currency))

	o, ok := r.orders.ByOwner("buyer")
	require.True(t, ok)
	assert.True(t, o.Satisfied(), "book copy follows purchases")
	assert.Empty(t, r.journeys.Active("buyer"))
	assert.Contains(t, r.w.Messages("buyer"), "Shopping journey finished.")
}

func TestConsiderPurchaseFeeAndPartialStock(t *testing.T) {
	ctx := context.Background()
	r := newShopperRig(nil)
	buyer := addPlayer(r.w, "buyer", diamonds(100))
	shop := r.stringShop(t, 5, 16, 30, 48)

	order := model.NewPurchaseOrder("o1", "buyer", 5)
	order.Put("STRING", 64, 2)
	out := r.shopper.ConsiderPurchase(ctx, order, shop)

	require.Equal(t, model.StepPurchased, out.Status)
	assert.Equal(t, 3, out.Bundles, "limited by stock")
	assert.Equal(t, 90, out.Paid)
	assert.Equal(t, 4, out.Fee)
	assert.Equal(t, 16, order.Remaining("STRING"))
	assert.Equal(t, 6, buyer.Inventory().CountType(currency))

	out = r.shopper.ConsiderPurchase(ctx, order, shop)
	assert.Equal(t, model.StepNoStock, out.Status)
}

func TestConsiderPurchaseSkips(t *testing.T) {
	ctx := context.Background()
	r := newShopperRig(nil)
	buyer := addPlayer(r.w, "buyer", diamonds(9))
	shop := r.stringShop(t, 5, 16, 4, 64)

	order := model.NewPurchaseOrder("o1", "buyer", 25)
	order.Put("STRING", 32, 0)

	out := r.shopper.ConsiderPurchase(ctx, order, shop)
	assert.Equal(t, model.StepNoFunds, out.Status, "8 + fee 2 > 9")
	assert.Equal(t, 9, buyer.Inventory().CountType(currency))

	buyer.Inventory().Add(diamonds(1))
	r.w.SetOnline("buyer", false)
	out = r.shopper.ConsiderPurchase(ctx, order, shop)
	assert.Equal(t, model.StepOwnerOffline, out.Status)

	r.w.SetOnline("buyer", true)
	missing := shop
	missing.Pos = model.BlockPos{World: "world", X: 99}
	out = r.shopper.ConsiderPurchase(ctx, order, missing)
	assert.Equal(t, model.StepUnreadable, out.Status)

	broken := shop
	broken.BundleSize = 0
	out = r.shopper.ConsiderPurchase(ctx, order, broken)
	assert.Equal(t, model.StepUnreadable, out.Status)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	out = r.shopper.ConsiderPurchase(cancelled, order, shop)
	assert.Equal(t, model.StepCancelled, out.Status)

	out = r.shopper.ConsiderPurchase(ctx, order, shop)
	require.Equal(t, model.StepPurchased, out.Status)
	assert.Equal(t, 2, out.Fee)
	assert.Equal(t, 0, buyer.Inventory().CountType(currency))

	out = r.shopper.ConsiderPurchase(ctx, order, shop)
	assert.Equal(t, model.StepSatisfied, out.Status)
}

func TestBuildRouteGreedyNearest(t *testing.T) {
	shop := func(x, price int, item string) model.Shop {
		return model.Shop{Pos: model.BlockPos{World: "world", X: x, Y: 64}, Template: model.NewStack(item, 1), BundleSize: 1, Price: price}
	}
	order := model.NewPurchaseOrder("o", "p", 0)
	order.Put("STRING", 10, 0)
	order.Put("COAL", 0, 0)

	shops := []model.Shop{
		shop(30, 1, "STRING"),
		shop(-5, 9, "STRING"),
		shop(2, 1, "COAL"),
		shop(10, 3, "STRING"),
		shop(-10, 2, "STRING"),
	}
	route := BuildRoute(model.Vec3{World: "world"}, order, shops)

	var xs []int
	for _, step := range route {
		xs = append(xs, step.Shop.Pos.X)
	}
	assert.Equal(t, []int{-5, -10, 10, 30}, xs)
	assert.Equal(t, shops[1].Pos.Standing(), route[0].Target)
	assert.Empty(t, BuildRoute(model.Vec3{World: "world"}, model.NewPurchaseOrder("o", "p", 0), shops))
}

func TestHireErrors(t *testing.T) {
	ctx := context.Background()
	r := newShopperRig(nil)
	addPlayer(r.w, "buyer", diamonds(10))

	_, err := r.journeys.Hire(ctx, "buyer", "", "")
	assert.True(t, apperrors.Is(err, apperrors.ErrOrderNotFound))

	_, err = r.journeys.Hire(ctx, "buyer", "", "8x COAL")
	assert.True(t, apperrors.Is(err, apperrors.ErrKeeperNotFound))

	_, err = r.keepers.Create(ctx, "buyer")
	require.NoError(t, err)
	_, err = r.journeys.Hire(ctx, "buyer", "", "")
	assert.True(t, apperrors.Is(err, apperrors.ErrShopNotFound), "stored order has no matching shop")
}

func TestJourneyCancel(t *testing.T) {
	ctx := context.Background()
	r := newShopperRig(nil)
	r.journeys.mover = &WalkMover{Entities: r.w, Step: 0.2, Fallback: 1000, Tick: 10 * time.Millisecond}
	buyer := addPlayer(r.w, "buyer", diamonds(50))
	r.stringShop(t, 500, 16, 4, 64)

	k, err := r.keepers.Create(ctx, "buyer")
	require.NoError(t, err)
	j, err := r.journeys.Hire(ctx, "buyer", k.ID, "16x STRING")
	require.NoError(t, err)

	_, err = r.journeys.Hire(ctx, "buyer", k.ID, "")
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation), "one journey per keeper")
	assert.Len(t, r.journeys.Active("buyer"), 1)

	assert.Equal(t, 1, r.journeys.CancelJourney("buyer"))
	waitJourney(t, j)

	assert.Equal(t, JourneyCancelled, j.Status())
	assert.Empty(t, j.Outcomes())
	assert.Equal(t, 50, buyer.Inventory().CountType(currency))
	assert.Contains(t, r.w.Messages("buyer"), "Shopping journey cancelled.")
	assert.Zero(t, r.journeys.CancelJourney("buyer"))
}

func TestWalkMoverArrives(t *testing.T) {
	w := newWorld()
	w.SpawnEntity("k", model.Vec3{World: "world", X: 0, Y: 65, Z: 0})
	m := &WalkMover{Entities: w, Step: 0.5, Fallback: 1000, Tick: time.Millisecond}

	target := model.Vec3{World: "world", X: 4.5, Y: 65, Z: 0.5}
	require.NoError(t, m.MoveTo(context.Background(), "k", target))
	pos, ok := w.EntityPos("k")
	require.True(t, ok)
	assert.Less(t, pos.DistanceSq(target), 1.0)

	other := model.Vec3{World: "nether", X: 1, Y: 70, Z: 1}
	require.NoError(t, m.MoveTo(context.Background(), "k", other))
	pos, _ = w.EntityPos("k")
	assert.Equal(t, other, pos)

	assert.Error(t, m.MoveTo(context.Background(), "ghost", target))
}

func TestWalkMoverSnapsToGround(t *testing.T) {
	w := newWorld()
	w.SpawnEntity("k", model.Vec3{World: "world", X: 0, Y: 90, Z: 0})
	m := NewWalkMover(w, 0.2, 1, time.Millisecond)

	target := model.Vec3{World: "world", X: 40, Y: 65, Z: 0}
	require.NoError(t, m.MoveTo(context.Background(), "k", target))
	pos, _ := w.EntityPos("k")
	assert.Less(t, pos.DistanceSq(target), 1.0)
}
