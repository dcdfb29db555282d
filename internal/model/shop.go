package model

import "time"

// Shop is immutable after creation; it is only ever replaced or removed.
type Shop struct {
	Owner      string    `json:"owner"`
	Pos        BlockPos  `json:"pos"`
	Template   ItemStack `json:"template"`
	BundleSize int       `json:"bundle_size"`
	Price      int       `json:"price"` // currency per bundle
	Currency   string    `json:"currency"`
	Facing     string    `json:"facing,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func (s Shop) Key() string {
	return s.Pos.String()
}

// Receipt is the result of a completed shop purchase. The Dropped fields count
// items or currency that did not fit and landed on the ground.
type Receipt struct {
	Shop            string    `json:"shop"`
	Buyer           string    `json:"buyer"`
	Bundles         int       `json:"bundles"`
	Items           ItemStack `json:"items"`
	Paid            int       `json:"paid"`
	Currency        string    `json:"currency"`
	DroppedItems    int       `json:"dropped_items,omitempty"`
	DroppedCurrency int       `json:"dropped_currency,omitempty"`
}
