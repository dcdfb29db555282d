package model

import "time"

type Auction struct {
	ID       string        `json:"id"`
	Owner    string        `json:"owner"`
	Start    time.Time     `json:"start"`
	Duration time.Duration `json:"duration"`
	Currency string        `json:"currency"`
	Lots     []AuctionLot  `json:"lots"`
}

func (a *Auction) EndsAt() time.Time {
	return a.Start.Add(a.Duration)
}

func (a *Auction) Lot(id string) (*AuctionLot, bool) {
	for i := range a.Lots {
		if a.Lots[i].ID == id {
			return &a.Lots[i], true
		}
	}
	return nil, false
}

// HasBids reports whether any lot has a bidder.
func (a *Auction) HasBids() bool {
	for _, l := range a.Lots {
		if l.HasBids() {
			return true
		}
	}
	return false
}

func (a *Auction) Clone() *Auction {
	out := *a
	out.Lots = make([]AuctionLot, len(a.Lots))
	for i, l := range a.Lots {
		l.Item = l.Item.WithAmount(l.Item.Amount)
		out.Lots[i] = l
	}
	return &out
}

type AuctionLot struct {
	ID            string    `json:"id"`
	Item          ItemStack `json:"item"`
	StartingBid   int       `json:"starting_bid"`
	HighestBid    int       `json:"highest_bid"`
	HighestBidder string    `json:"highest_bidder,omitempty"`
}

func (l AuctionLot) HasBids() bool {
	return l.HighestBidder != ""
}

func (l AuctionLot) CurrentPrice() int {
	if l.HasBids() {
		return l.HighestBid
	}
	return l.StartingBid
}

// MinimumBid is the smallest amount the next bid must reach.
func (l AuctionLot) MinimumBid() int {
	if l.HasBids() {
		return l.HighestBid + 1
	}
	return l.StartingBid
}
