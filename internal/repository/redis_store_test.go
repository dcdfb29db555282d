package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/mcbn/tradepost/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := WrapRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test")
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStoreRoundTripsEveryRecordSet(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	store := NewRedisStore(client)

	pos := model.BlockPos{World: "overworld", X: 4, Y: 64, Z: -2}
	shop := model.Shop{Owner: "alice", Pos: pos, Template: model.NewStack("STRING", 1), BundleSize: 16, Price: 10, Currency: "DIAMOND"}
	require.NoError(t, store.SaveShop(ctx, shop))

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	auction := &model.Auction{ID: "a1", Owner: "alice", Start: start, Duration: time.Hour, Currency: "DIAMOND",
		Lots: []model.AuctionLot{{ID: "1", Item: model.NewStack("BOW", 1), StartingBid: 5, HighestBid: 7, HighestBidder: "bob"}}}
	require.NoError(t, store.SaveAuction(ctx, auction))

	require.NoError(t, store.SaveClaim(ctx, model.ClaimEntry{Owner: "bob", Currency: map[string]int{"DIAMOND": 3}}))

	order := model.NewPurchaseOrder("o1", "carol", 5)
	order.Put("STRING", 64, 2)
	require.NoError(t, store.SaveOrder(ctx, order))

	keeper := &model.ShopKeeper{ID: "k1", Owner: "carol", Home: pos, Linked: []model.BlockPos{pos}}
	require.NoError(t, store.SaveKeeper(ctx, keeper))

	shops, err := store.LoadShops(ctx)
	require.NoError(t, err)
	require.Len(t, shops, 1)
	assert.Equal(t, pos, shops[0].Pos)
	assert.Equal(t, 16, shops[0].BundleSize)

	auctions, err := store.LoadAuctions(ctx)
	require.NoError(t, err)
	require.Len(t, auctions, 1)
	assert.Equal(t, start.Add(time.Hour), auctions[0].EndsAt())
	assert.Equal(t, "bob", auctions[0].Lots[0].HighestBidder)

	claims, err := store.LoadClaims(ctx)
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, 3, claims[0].Currency["DIAMOND"])

	orders, err := store.LoadOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, 64, orders[0].Remaining("STRING"))

	keepers, err := store.LoadKeepers(ctx)
	require.NoError(t, err)
	require.Len(t, keepers, 1)
	assert.True(t, keepers[0].IsLinked(pos))

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"shops": 1, "auctions": 1, "claims": 1, "orders": 1, "keepers": 1}, counts)

	require.NoError(t, store.DeleteShop(ctx, pos))
	require.NoError(t, store.DeleteClaim(ctx, "bob"))
	shops, err = store.LoadShops(ctx)
	require.NoError(t, err)
	assert.Empty(t, shops)
	claims, err = store.LoadClaims(ctx)
	require.NoError(t, err)
	assert.Empty(t, claims)
}

func TestRedisStoreSkipsCorruptDocuments(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	store := NewRedisStore(client)

	require.NoError(t, store.SaveOrder(ctx, model.NewPurchaseOrder("good", "alice", 0)))
	mr.HSet("test:orders", "bad", "{not json")

	orders, err := store.LoadOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "good", orders[0].ID)
}

func TestRedisStoreReportsOutage(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisStore(client)
	mr.Close()

	err := store.SaveClaim(context.Background(), model.ClaimEntry{Owner: "bob"})
	assert.Error(t, err)
}
