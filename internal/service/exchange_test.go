package service

import (
	"context"
	"math"
	"testing"

	"github.com/mcbn/tradepost/internal/model"
	"github.com/mcbn/tradepost/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stringShop() model.Shop {
	return model.Shop{
		Owner:      "seller",
		Pos:        shopPos,
		Template:   model.NewStack("STRING", 1),
		BundleSize: 16,
		Price:      4,
		Currency:   currency,
	}
}

func TestPurchaseMovesItemsAndCurrency(t *testing.T) {
	w := newWorld()
	buyer := addPlayer(w, "buyer", diamonds(8))
	chest := w.PlaceContainer(shopPos, 27)
	chest.Add(model.NewStack("STRING", 32))

	ex := NewExchange(w, NewBus())
	receipt, err := ex.Purchase(context.Background(), "buyer", stringShop(), 2)
	require.NoError(t, err)

	assert.Equal(t, 8, receipt.Paid)
	assert.Equal(t, 32, receipt.Items.Amount)
	assert.Equal(t, 0, buyer.Inventory().CountType(currency))
	assert.Equal(t, 32, buyer.Inventory().CountType("STRING"))
	assert.Equal(t, 8, chest.CountType(currency))
	assert.Equal(t, 0, chest.CountType("STRING"))
}

func TestPurchasePreconditions(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	addPlayer(w, "buyer", diamonds(6))
	chest := w.PlaceContainer(shopPos, 27)
	chest.Add(model.NewStack("STRING", 40))
	ex := NewExchange(w, NewBus())
	shop := stringShop()

	_, err := ex.Purchase(ctx, "buyer", shop, 0)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	_, err = ex.Purchase(ctx, "buyer", shop, 3)
	assert.True(t, apperrors.Is(err, apperrors.ErrInsufficientStock))
	limit, ok := apperrors.LimitOf(err)
	require.True(t, ok)
	assert.Equal(t, 2, limit)

	// bundles*size would wrap to zero
	_, err = ex.Purchase(ctx, "buyer", shop, 1<<62)
	assert.True(t, apperrors.Is(err, apperrors.ErrInsufficientStock))
	limit, _ = apperrors.LimitOf(err)
	assert.Equal(t, 2, limit)

	pricey := shop
	pricey.Price = math.MaxInt/2 + 1
	_, err = ex.Purchase(ctx, "buyer", pricey, 2)
	assert.True(t, apperrors.Is(err, apperrors.ErrInsufficientFunds))
	limit, _ = apperrors.LimitOf(err)
	assert.Equal(t, 0, limit)

	_, err = ex.Purchase(ctx, "buyer", shop, 2)
	assert.True(t, apperrors.Is(err, apperrors.ErrInsufficientFunds))
	limit, _ = apperrors.LimitOf(err)
	assert.Equal(t, 1, limit)

	missing := shop
	missing.Pos = model.BlockPos{World: "world", X: 99}
	_, err = ex.Purchase(ctx, "buyer", missing, 1)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotAContainer))

	_, err = ex.Purchase(ctx, "ghost", shop, 1)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	assert.Equal(t, 1, ex.MaxAffordable("buyer", shop))
	assert.Equal(t, 40, chest.CountType("STRING"), "failed checks must not move stock")
}

func TestPurchaseRollsBackWhenContainerComesUpShort(t *testing.T) {
	w := newWorld()
	buyer := addPlayer(w, "buyer", diamonds(8))
	chest := w.PlaceContainer(shopPos, 27)
	chest.Add(model.NewStack("STRING", 32))
	host := &shortHost{World: w, pos: shopPos, gives: 20}

	ex := NewExchange(host, NewBus())
	_, err := ex.Purchase(context.Background(), "buyer", stringShop(), 2)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInsufficientStock))

	assert.Equal(t, 8, buyer.Inventory().CountType(currency))
	assert.Equal(t, 0, buyer.Inventory().CountType("STRING"))
	assert.Equal(t, 32, chest.CountType("STRING"))
	assert.Equal(t, 0, chest.CountType(currency))
}

func TestPurchaseVetoedByListener(t *testing.T) {
	w := newWorld()
	buyer := addPlayer(w, "buyer", diamonds(8))
	chest := w.PlaceContainer(shopPos, 27)
	chest.Add(model.NewStack("STRING", 32))

	bus := NewBus()
	rec := &recorder{veto: model.EventShopPurchased}
	bus.Subscribe(rec)

	_, err := NewExchange(w, bus).Purchase(context.Background(), "buyer", stringShop(), 1)
	assert.True(t, apperrors.Is(err, apperrors.ErrCancelled))
	assert.Equal(t, 8, buyer.Inventory().CountType(currency))
	assert.Equal(t, 32, chest.CountType("STRING"))
	assert.Equal(t, []model.EventKind{model.EventShopPurchased}, rec.kinds())
}

func TestPurchaseOverflowDropsInsteadOfLosing(t *testing.T) {
	w := newWorld()
	buyer := addPlayer(w, "buyer", diamonds(6))
	// the leftover diamonds keep slot 0 busy, dirt fills the rest
	for i := 0; i < 35; i++ {
		buyer.Inventory().Add(model.NewStack("DIRT", 64))
	}
	chest := w.PlaceContainer(shopPos, 1)
	chest.Add(model.NewStack("STRING", 16))

	shop := stringShop()
	shop.Price = 2
	before := w.TotalOf("STRING") + w.TotalOf(currency)
	receipt, err := NewExchange(w, NewBus()).Purchase(context.Background(), "buyer", shop, 1)
	require.NoError(t, err)

	assert.Equal(t, 16, receipt.DroppedItems)
	assert.Equal(t, before, w.TotalOf("STRING")+w.TotalOf(currency))
	assert.Len(t, w.Drops(), 1)
}
