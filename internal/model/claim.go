package model

// ClaimEntry is what an identity is owed but has not collected yet.
type ClaimEntry struct {
	Owner    string         `json:"owner"`
	Items    []ItemStack    `json:"items,omitempty"`
	Currency map[string]int `json:"currency,omitempty"`
}

func (e ClaimEntry) IsEmpty() bool {
	if len(e.Items) > 0 {
		return false
	}
	for _, n := range e.Currency {
		if n > 0 {
			return false
		}
	}
	return true
}

func (e ClaimEntry) Clone() ClaimEntry {
	out := ClaimEntry{Owner: e.Owner}
	if len(e.Items) > 0 {
		out.Items = make([]ItemStack, len(e.Items))
		for i, it := range e.Items {
			out.Items[i] = it.WithAmount(it.Amount)
		}
	}
	if len(e.Currency) > 0 {
		out.Currency = make(map[string]int, len(e.Currency))
		for k, v := range e.Currency {
			out.Currency[k] = v
		}
	}
	return out
}

// ClaimReceipt reports what a claim handed over and what spilled to the ground.
type ClaimReceipt struct {
	Owner           string         `json:"owner"`
	Items           []ItemStack    `json:"items,omitempty"`
	Currency        map[string]int `json:"currency,omitempty"`
	DroppedItems    int            `json:"dropped_items,omitempty"`
	DroppedCurrency int            `json:"dropped_currency,omitempty"`
}

func (r ClaimReceipt) IsEmpty() bool {
	return len(r.Items) == 0 && len(r.Currency) == 0
}

// LedgerTotals tracks lifetime flow through an identity's ledger entry.
type LedgerTotals struct {
	CreditedCurrency map[string]int `json:"credited_currency"`
	ClaimedCurrency  map[string]int `json:"claimed_currency"`
	CreditedItems    int            `json:"credited_items"`
	ClaimedItems     int            `json:"claimed_items"`
}
