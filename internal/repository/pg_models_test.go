package repository

import (
	"testing"
	"time"

	"github.com/mcbn/tradepost/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuctionRecordKeepsLotOrder(t *testing.T) {
	start := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	a := &model.Auction{ID: "a9", Owner: "alice", Start: start, Duration: 90 * time.Minute, Currency: "EMERALD",
		Lots: []model.AuctionLot{
			{ID: "2", Item: model.NewStack("BOW", 1), StartingBid: 4},
			{ID: "1", Item: model.NewStack("ARROW", 32), StartingBid: 2, HighestBid: 3, HighestBidder: "bob"},
		}}

	rec := toAuctionRecord(a)
	assert.Equal(t, start.Add(90*time.Minute), rec.EndsAt)
	require.Len(t, rec.Lots, 2)
	assert.Equal(t, 1, rec.Lots[1].Position)

	// rows come back from the database in arbitrary order
	rec.Lots[0], rec.Lots[1] = rec.Lots[1], rec.Lots[0]
	back := rec.toDomain()
	assert.Equal(t, a.Duration, back.Duration)
	assert.Equal(t, []string{"2", "1"}, []string{back.Lots[0].ID, back.Lots[1].ID})
	assert.Equal(t, "bob", back.Lots[1].HighestBidder)
}

func TestKeeperRecordDropsUnparsableLinks(t *testing.T) {
	home := model.BlockPos{World: "overworld", X: 1, Y: 65, Z: 1}
	rec := toKeeperRecord(&model.ShopKeeper{ID: "k", Owner: "alice", Home: home, Linked: []model.BlockPos{home}})
	rec.Linked = append(rec.Linked, "garbage")

	k, err := rec.toDomain()
	require.NoError(t, err)
	assert.Equal(t, []model.BlockPos{home}, k.Linked)

	rec.Home = "nowhere"
	_, err = rec.toDomain()
	assert.Error(t, err)
}

func TestShopRecordIndexesItemType(t *testing.T) {
	shop := model.Shop{Owner: "alice", Pos: model.BlockPos{World: "overworld", X: -3, Y: 70, Z: 8}, Template: model.NewStack("STRING", 1), BundleSize: 8, Price: 3, Currency: "DIAMOND"}
	rec := toShopRecord(shop)
	assert.Equal(t, "STRING", rec.ItemType)

	back, err := rec.toDomain()
	require.NoError(t, err)
	assert.Equal(t, shop.Pos, back.Pos)
}
