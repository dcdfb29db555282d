package market

import (
	"sort"

	"github.com/mcbn/tradepost/internal/model"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// UnitPrice is the exact price of a single item in a bundle.
func UnitPrice(price, bundleSize int) decimal.Decimal {
	if bundleSize <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(price)).Div(decimal.NewFromInt(int64(bundleSize)))
}

// CeilUnitPrice rounds the per-item price up, as used against order price caps.
func CeilUnitPrice(price, bundleSize int) int {
	return int(UnitPrice(price, bundleSize).Ceil().IntPart())
}

// Fee is floor(total * percent / 100), never negative.
func Fee(total, percent int) int {
	if total <= 0 || percent <= 0 {
		return 0
	}
	return int(decimal.NewFromInt(int64(total)).
		Mul(decimal.NewFromInt(int64(percent))).
		Div(hundred).
		Floor().
		IntPart())
}

// BundlesFor is the number of bundles needed to cover qty items.
func BundlesFor(qty, bundleSize int) int {
	if qty <= 0 || bundleSize <= 0 {
		return 0
	}
	return (qty + bundleSize - 1) / bundleSize
}

// SortByBundlePrice orders shops cheapest bundle first. Stable so equal prices keep snapshot order.
func SortByBundlePrice(shops []model.Shop) {
	sort.SliceStable(shops, func(i, j int) bool { return shops[i].Price < shops[j].Price })
}
