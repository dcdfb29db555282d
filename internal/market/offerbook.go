package market

import (
	"sort"
	"sync"
	"time"

	"github.com/mcbn/tradepost/internal/model"
	"github.com/shopspring/decimal"
)

// Offer is one shop selling an item, priced per single item.
type Offer struct {
	Shop         string          `json:"shop"`
	Owner        string          `json:"owner"`
	Pos          model.BlockPos  `json:"pos"`
	Template     model.ItemStack `json:"template"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Price        int             `json:"price"`
	BundleSize   int             `json:"bundle_size"`
	Currency     string          `json:"currency"`
	StockBundles int             `json:"stock_bundles"`
}

// OfferBook lists every shop selling one item type, cheapest unit price first.
type OfferBook struct {
	Item        string
	Offers      []Offer
	LastUpdated time.Time
	mu          sync.RWMutex
}

// StockFunc reports how many bundles a shop can currently sell (-1 if unknown).
type StockFunc func(model.Shop) int

func NewOfferBook(item string) *OfferBook {
	return &OfferBook{Item: item, Offers: make([]Offer, 0)}
}

// Snapshot rebuilds the book from the given shops.
func (b *OfferBook) Snapshot(shops []model.Shop, stock StockFunc) {
	offers := make([]Offer, 0, len(shops))
	for _, s := range shops {
		if s.Template.Type != b.Item {
			continue
		}
		bundles := -1
		if stock != nil {
			bundles = stock(s)
		}
		offers = append(offers, Offer{
			Shop:         s.Key(),
			Owner:        s.Owner,
			Pos:          s.Pos,
			Template:     s.Template,
			UnitPrice:    UnitPrice(s.Price, s.BundleSize),
			Price:        s.Price,
			BundleSize:   s.BundleSize,
			Currency:     s.Currency,
			StockBundles: bundles,
		})
	}
	sort.SliceStable(offers, func(i, j int) bool {
		return offers[i].UnitPrice.LessThan(offers[j].UnitPrice)
	})

	b.mu.Lock()
	defer b.mu.Unlock()
	b.Offers = offers
	b.LastUpdated = time.Now()
}

// GetCopy returns a snapshot safe to iterate.
func (b *OfferBook) GetCopy() []Offer {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Offer(nil), b.Offers...)
}

// Best returns the cheapest offer with stock, if any.
func (b *OfferBook) Best() (Offer, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, o := range b.Offers {
		if o.StockBundles != 0 {
			return o, true
		}
	}
	return Offer{}, false
}
