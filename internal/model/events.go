package model

import "time"

type EventKind string

const (
	EventShopCreated           EventKind = "shop.created"
	EventShopRemoved           EventKind = "shop.removed"
	EventShopPurchased         EventKind = "shop.purchased"
	EventShopPurchaseCompleted EventKind = "shop.purchase_completed"
	EventAuctionCreated        EventKind = "auction.created"
	EventAuctionBid            EventKind = "auction.bid"
	EventAuctionSettled        EventKind = "auction.settled"
	EventAuctionCancelled      EventKind = "auction.cancelled"
	EventLedgerClaimed         EventKind = "ledger.claimed"
)

// Event is an integration event. Payload is one of the model types (Shop, Receipt, Auction...).
type Event struct {
	Kind    EventKind `json:"kind"`
	Actor   string    `json:"actor,omitempty"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload,omitempty"`
}

// Cancelable reports whether listeners may veto the event.
func (k EventKind) Cancelable() bool {
	return k == EventShopCreated || k == EventShopPurchased
}
