package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLotPricing(t *testing.T) {
	lot := AuctionLot{ID: "0", Item: NewStack("ELYTRA", 1), StartingBid: 10}
	assert.False(t, lot.HasBids())
	assert.Equal(t, 10, lot.CurrentPrice())
	assert.Equal(t, 10, lot.MinimumBid())

	lot.HighestBid, lot.HighestBidder = 10, "a"
	assert.Equal(t, 10, lot.CurrentPrice())
	assert.Equal(t, 11, lot.MinimumBid())
}

func TestOrderFulfillClampsAtZero(t *testing.T) {
	o := NewPurchaseOrder("o1", "p1", 5)
	o.Put("STRING", 20, 2)
	assert.Equal(t, 2, o.MaxPriceFor("STRING"))

	assert.Equal(t, 4, o.Fulfill("STRING", 16))
	assert.Equal(t, 0, o.Fulfill("STRING", 16))
	assert.True(t, o.Satisfied())

	o.Put("STRING", 8, 0)
	_, capped := o.MaxPrice["STRING"]
	assert.False(t, capped)

	clone := o.Clone()
	clone.Fulfill("STRING", 8)
	assert.Equal(t, 8, o.Remaining("STRING"))
}

func TestBlockPosParse(t *testing.T) {
	pos, err := ParseBlockPos("world_nether;-12;64;300")
	require.NoError(t, err)
	assert.Equal(t, BlockPos{World: "world_nether", X: -12, Y: 64, Z: 300}, pos)

	_, err = ParseBlockPos("world;1;2")
	assert.Error(t, err)
}

func TestDistanceAcrossWorlds(t *testing.T) {
	a := Vec3{World: "world", X: 0, Y: 0, Z: 0}
	b := Vec3{World: "world", X: 3, Y: 4, Z: 0}
	assert.Equal(t, 25.0, a.DistanceSq(b))
	assert.True(t, math.IsInf(a.DistanceSq(Vec3{World: "end"}), 1))
}

func TestSimilarIgnoresAmount(t *testing.T) {
	a := ItemStack{Type: "BOOK", Attrs: map[string]string{"title": "x"}, Amount: 3}
	assert.True(t, a.Similar(a.Template()))
	assert.False(t, a.Similar(NewStack("BOOK", 3)))
}

func TestTemplateNormalizesTypeAndAmount(t *testing.T) {
	tpl := ItemStack{Type: "string", Attrs: map[string]string{"name": "Fine"}, Amount: 12}.Template()
	assert.Equal(t, "STRING", tpl.Type)
	assert.Equal(t, 1, tpl.Amount)
	assert.True(t, tpl.Similar(ItemStack{Type: "STRING", Attrs: map[string]string{"name": "Fine"}}))
}
