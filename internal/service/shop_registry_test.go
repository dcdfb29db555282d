package service

import (
	"context"
	"testing"

	"github.com/mcbn/tradepost/internal/model"
	"github.com/mcbn/tradepost/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShopCreateUsesFirstStackAsTemplate(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	chest := w.PlaceContainer(shopPos, 27)
	chest.Add(model.NewStack("ARROW", 48))
	reg := NewShopRegistry(NewMemoryStore(), w, w, NewBus(), currency)

	shop, err := reg.Create(ctx, CreateShopInput{Owner: "seller", Pos: shopPos, BundleSize: 16, Price: 3})
	require.NoError(t, err)
	assert.Equal(t, "ARROW", shop.Template.Type)
	assert.Equal(t, 1, shop.Template.Amount)
	assert.Equal(t, currency, shop.Currency)

	marker, ok := w.Marker(shopPos)
	require.True(t, ok)
	assert.Contains(t, marker, "16x ARROW")

	info, err := reg.Info(shopPos)
	require.NoError(t, err)
	assert.Equal(t, 3, info.StockBundles)
	assert.Equal(t, "0.19", info.UnitPrice)
	assert.Equal(t, 1, info.UnitPriceCeil)

	_, err = reg.Create(ctx, CreateShopInput{Owner: "seller", Pos: shopPos, BundleSize: 1, Price: 1})
	assert.True(t, apperrors.Is(err, apperrors.ErrShopExists))
}

func TestShopCreateValidation(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	w.PlaceContainer(shopPos, 27)
	reg := NewShopRegistry(NewMemoryStore(), w, w, NewBus(), currency)

	_, err := reg.Create(ctx, CreateShopInput{Owner: "s", Pos: shopPos, BundleSize: 0, Price: 1})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	_, err = reg.Create(ctx, CreateShopInput{Owner: "s", Pos: shopPos, BundleSize: 1, Price: 0})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	_, err = reg.Create(ctx, CreateShopInput{Owner: "s", Pos: shopPos, BundleSize: 1, Price: 1})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation), "empty container and no template")

	_, err = reg.Create(ctx, CreateShopInput{Owner: "s", Pos: model.BlockPos{World: "world"}, BundleSize: 1, Price: 1})
	assert.True(t, apperrors.Is(err, apperrors.ErrNotAContainer))
}

func TestShopCreateCanBeVetoed(t *testing.T) {
	w := newWorld()
	w.PlaceContainer(shopPos, 27)
	bus := NewBus()
	bus.Subscribe(&recorder{veto: model.EventShopCreated})
	reg := NewShopRegistry(NewMemoryStore(), w, w, bus, currency)

	tmpl := model.NewStack("BREAD", 1)
	_, err := reg.Create(context.Background(), CreateShopInput{Owner: "s", Pos: shopPos, Template: &tmpl, BundleSize: 8, Price: 1})
	assert.True(t, apperrors.Is(err, apperrors.ErrCancelled))
	assert.Empty(t, reg.All())
}

func TestShopRemoveAndQueries(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	store := NewMemoryStore()
	rec := &recorder{}
	bus := NewBus()
	bus.Subscribe(rec)
	reg := NewShopRegistry(store, w, w, bus, currency)

	other := model.BlockPos{World: "world", X: 20, Y: 64}
	for _, pos := range []model.BlockPos{shopPos, other} {
		w.PlaceContainer(pos, 27)
	}
	bread := model.NewStack("BREAD", 1)
	apple := model.NewStack("APPLE", 1)
	_, err := reg.Create(ctx, CreateShopInput{Owner: "anna", Pos: shopPos, Template: &bread, BundleSize: 8, Price: 2})
	require.NoError(t, err)
	_, err = reg.Create(ctx, CreateShopInput{Owner: "ben", Pos: other, Template: &apple, BundleSize: 4, Price: 1})
	require.NoError(t, err)

	assert.Len(t, reg.ByOwner("anna"), 1)
	assert.Len(t, reg.ByItemType("apple"), 1)
	assert.Len(t, reg.ByTemplate(bread), 1)

	_, err = reg.Remove(ctx, "ben", shopPos, false)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotOwner))

	_, err = reg.Remove(ctx, "anna", shopPos, false)
	require.NoError(t, err)
	_, ok := w.Marker(shopPos)
	assert.False(t, ok)
	assert.Contains(t, rec.kinds(), model.EventShopRemoved)

	_, err = reg.Remove(ctx, "anna", shopPos, false)
	assert.True(t, apperrors.Is(err, apperrors.ErrShopNotFound))

	fresh := NewShopRegistry(store, w, w, NewBus(), currency)
	n, err := fresh.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, ok = w.Marker(other)
	assert.True(t, ok)
}

func TestShopOffersSortedByUnitPrice(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	reg := NewShopRegistry(NewMemoryStore(), w, nil, nil, currency)
	cheap := model.BlockPos{World: "world", X: 1}
	pricey := model.BlockPos{World: "world", X: 2}
	for pos, price := range map[model.BlockPos]int{cheap: 16, pricey: 40} {
		c := w.PlaceContainer(pos, 27)
		c.Add(model.NewStack("COAL", 32))
		tmpl := model.NewStack("COAL", 1)
		_, err := reg.Create(ctx, CreateShopInput{Owner: "s", Pos: pos, Template: &tmpl, BundleSize: 16, Price: price})
		require.NoError(t, err)
	}

	book := reg.Offers("coal")
	best, ok := book.Best()
	require.True(t, ok)
	assert.Equal(t, cheap, best.Pos)
	assert.Len(t, book.GetCopy(), 2)
}

func TestShopCreateNormalizesTemplateType(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	w.PlaceContainer(shopPos, 27).Add(model.NewStack("STRING", 32))
	reg := NewShopRegistry(NewMemoryStore(), w, w, NewBus(), currency)

	lower := model.ItemStack{Type: "string", Amount: 5}
	shop, err := reg.Create(ctx, CreateShopInput{Owner: "anna", Pos: shopPos, Template: &lower, BundleSize: 16, Price: 4})
	require.NoError(t, err)
	assert.Equal(t, "STRING", shop.Template.Type)
	assert.Equal(t, 2, reg.StockBundles(shop))
}

func TestShopLoadSkipsUnusableRows(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	store := NewMemoryStore()
	other := model.BlockPos{World: "world", X: 30, Y: 64}
	require.NoError(t, store.SaveShop(ctx, model.Shop{Owner: "anna", Pos: shopPos, Template: model.NewStack("BREAD", 1), BundleSize: 8, Price: 2, Currency: currency}))
	require.NoError(t, store.SaveShop(ctx, model.Shop{Owner: "ben", Pos: other, Template: model.NewStack("APPLE", 1), BundleSize: 0, Price: 2, Currency: currency}))

	reg := NewShopRegistry(store, w, w, NewBus(), currency)
	n, err := reg.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, ok := reg.Get(other)
	assert.False(t, ok)
}
