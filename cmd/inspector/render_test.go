package main

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mcbn/tradepost/internal/eventfeed"
	"github.com/mcbn/tradepost/internal/model"
	"github.com/mcbn/tradepost/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSnapshotFromStore(t *testing.T) {
	ctx := context.Background()
	store := service.NewMemoryStore()

	pos := model.BlockPos{World: "world", X: 10, Y: 64, Z: 0}
	require.NoError(t, store.SaveShop(ctx, model.Shop{Owner: "alice", Pos: pos, Template: model.NewStack("STRING", 1), BundleSize: 16, Price: 4, Currency: "DIAMOND"}))
	require.NoError(t, store.SaveAuction(ctx, &model.Auction{
		ID: "a1", Owner: "alice", Start: time.Now(), Duration: time.Hour, Currency: "DIAMOND",
		Lots: []model.AuctionLot{{ID: "l1", Item: model.NewStack("BOW", 1), StartingBid: 5, HighestBid: 7, HighestBidder: "bob"}},
	}))
	require.NoError(t, store.SaveClaim(ctx, model.ClaimEntry{Owner: "carol", Currency: map[string]int{"DIAMOND": 12}}))
	order := model.NewPurchaseOrder("o1", "bob", 5)
	order.Put("STRING", 32, 0)
	require.NoError(t, store.SaveOrder(ctx, order))

	snap, err := loadSnapshot(ctx, store)
	require.NoError(t, err)
	out := renderSnapshot(snap)

	assert.Contains(t, out, "Shops (1)")
	assert.Contains(t, out, "world;10;64;0")
	assert.Contains(t, out, "Auctions (1)")
	assert.Contains(t, out, "bob")
	assert.Contains(t, out, "Pending claims (1)")
	assert.Contains(t, out, "12 DIAMOND")
	assert.Contains(t, out, "Purchase orders (1)")
	assert.Contains(t, out, "STRING")
	assert.Contains(t, out, "Shopkeepers (0)")
}

func TestRenderEvent(t *testing.T) {
	line := renderEvent(eventfeed.Event{
		Kind:    model.EventLedgerClaimed,
		Actor:   "alice",
		At:      time.Now(),
		Payload: json.RawMessage(`{"owner":"alice"}`),
	})
	assert.Contains(t, line, "ledger.claimed")
	assert.Contains(t, line, "by alice")
	assert.Contains(t, line, `{"owner":"alice"}`)
}

func TestFormatAmounts(t *testing.T) {
	assert.Equal(t, "-", formatAmounts(nil))
	assert.Equal(t, "3 DIAMOND, 1 EMERALD", formatAmounts(map[string]int{"EMERALD": 1, "DIAMOND": 3, "GOLD": 0}))
}
