package model

import "time"

// ShopKeeper is a physical proxy for its owner. It holds no currency.
type ShopKeeper struct {
	ID        string     `json:"id"`
	Owner     string     `json:"owner"`
	Home      BlockPos   `json:"home"`
	Linked    []BlockPos `json:"linked,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func (k *ShopKeeper) IsLinked(pos BlockPos) bool {
	for _, p := range k.Linked {
		if p == pos {
			return true
		}
	}
	return false
}

func (k *ShopKeeper) Clone() *ShopKeeper {
	out := *k
	out.Linked = append([]BlockPos(nil), k.Linked...)
	return &out
}

// StepStatus is the outcome of one shopper route step.
type StepStatus string

const (
	StepPurchased    StepStatus = "purchased"
	StepSatisfied    StepStatus = "satisfied"
	StepTooExpensive StepStatus = "too_expensive"
	StepNoStock      StepStatus = "no_stock"
	StepUnreadable   StepStatus = "unreadable"
	StepOwnerOffline StepStatus = "owner_offline"
	StepNoFunds      StepStatus = "insufficient_funds"
	StepFailed       StepStatus = "failed"
	StepCancelled    StepStatus = "cancelled"
)

type StepOutcome struct {
	Shop    string     `json:"shop"`
	Item    string     `json:"item"`
	Status  StepStatus `json:"status"`
	Bundles int        `json:"bundles,omitempty"`
	Items   int        `json:"items,omitempty"`
	Paid    int        `json:"paid,omitempty"`
	Fee     int        `json:"fee,omitempty"`
	Reason  string     `json:"reason,omitempty"`
}
