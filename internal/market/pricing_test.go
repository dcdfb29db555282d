package market

import (
	"testing"

	"github.com/mcbn/tradepost/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestCeilUnitPrice(t *testing.T) {
	assert.Equal(t, 3, CeilUnitPrice(40, 16), "2.5 rounds up")
	assert.Equal(t, 2, CeilUnitPrice(32, 16))
	assert.Equal(t, 1, CeilUnitPrice(1, 64))
	assert.Equal(t, "2.5", UnitPrice(40, 16).String())
}

func TestFeeFloors(t *testing.T) {
	assert.Equal(t, 1, Fee(32, 5))
	assert.Equal(t, 0, Fee(19, 5))
	assert.Equal(t, 5, Fee(100, 5))
	assert.Equal(t, 0, Fee(100, 0))
}

func TestBundlesFor(t *testing.T) {
	assert.Equal(t, 4, BundlesFor(64, 16))
	assert.Equal(t, 5, BundlesFor(65, 16))
	assert.Equal(t, 0, BundlesFor(0, 16))
}

func TestOfferBookCheapestFirst(t *testing.T) {
	pos := func(x int) model.BlockPos { return model.BlockPos{World: "world", X: x} }
	shops := []model.Shop{
		{Pos: pos(1), Template: model.NewStack("STRING", 1), BundleSize: 16, Price: 40},
		{Pos: pos(2), Template: model.NewStack("STRING", 1), BundleSize: 16, Price: 32},
		{Pos: pos(3), Template: model.NewStack("COAL", 1), BundleSize: 1, Price: 1},
	}
	book := NewOfferBook("STRING")
	book.Snapshot(shops, func(s model.Shop) int {
		if s.Pos.X == 2 {
			return 0
		}
		return 3
	})

	offers := book.GetCopy()
	assert.Len(t, offers, 2)
	assert.Equal(t, pos(2), offers[0].Pos)

	best, ok := book.Best()
	assert.True(t, ok)
	assert.Equal(t, pos(1), best.Pos, "cheapest shop is out of stock")
}
