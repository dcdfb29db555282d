package model

import "sort"

// PurchaseOrder is a standing wish-list: item type -> remaining quantity, and
// item type -> max acceptable price per single item (0 or absent = any).
type PurchaseOrder struct {
	ID         string         `json:"id"`
	Owner      string         `json:"owner"`
	Wanted     map[string]int `json:"wanted"`
	MaxPrice   map[string]int `json:"max_price,omitempty"`
	FeePercent int            `json:"fee_percent"`
}

func NewPurchaseOrder(id, owner string, feePercent int) *PurchaseOrder {
	return &PurchaseOrder{
		ID:         id,
		Owner:      owner,
		Wanted:     make(map[string]int),
		MaxPrice:   make(map[string]int),
		FeePercent: feePercent,
	}
}

// Put sets the wanted amount for an item; maxPerItem <= 0 clears the price cap.
func (o *PurchaseOrder) Put(item string, amount, maxPerItem int) {
	if o.Wanted == nil {
		o.Wanted = make(map[string]int)
	}
	if o.MaxPrice == nil {
		o.MaxPrice = make(map[string]int)
	}
	o.Wanted[item] = amount
	if maxPerItem > 0 {
		o.MaxPrice[item] = maxPerItem
	} else {
		delete(o.MaxPrice, item)
	}
}

func (o *PurchaseOrder) Remaining(item string) int {
	return o.Wanted[item]
}

func (o *PurchaseOrder) MaxPriceFor(item string) int {
	return o.MaxPrice[item]
}

// Fulfill decrements the remaining quantity, never below zero.
func (o *PurchaseOrder) Fulfill(item string, qty int) int {
	left := o.Wanted[item] - qty
	if left < 0 {
		left = 0
	}
	if _, ok := o.Wanted[item]; ok {
		o.Wanted[item] = left
	}
	return left
}

func (o *PurchaseOrder) Satisfied() bool {
	for _, n := range o.Wanted {
		if n > 0 {
			return false
		}
	}
	return true
}

// Items returns the order's item types in stable order.
func (o *PurchaseOrder) Items() []string {
	out := make([]string, 0, len(o.Wanted))
	for k := range o.Wanted {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (o *PurchaseOrder) Clear() {
	o.Wanted = make(map[string]int)
	o.MaxPrice = make(map[string]int)
}

func (o *PurchaseOrder) Clone() *PurchaseOrder {
	out := NewPurchaseOrder(o.ID, o.Owner, o.FeePercent)
	for k, v := range o.Wanted {
		out.Wanted[k] = v
	}
	for k, v := range o.MaxPrice {
		out.MaxPrice[k] = v
	}
	return out
}
