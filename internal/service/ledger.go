package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/mcbn/tradepost/internal/model"
	"github.com/mcbn/tradepost/internal/pkg/apperrors"
	"github.com/mcbn/tradepost/internal/pkg/logger"
	"github.com/mcbn/tradepost/internal/pkg/metrics"
	"github.com/mcbn/tradepost/internal/world"
)

// Ledger holds items and currency owed to identities that could not be paid
// synchronously. Entries only grow until the owner claims them.
type Ledger struct {
	mu        sync.Mutex
	entries   map[string]*model.ClaimEntry
	totals    map[string]*model.LedgerTotals
	repo      LedgerRepo
	host      world.Host
	bus       *Bus
	stackSize int
	log       *slog.Logger
}

func NewLedger(repo LedgerRepo, host world.Host, bus *Bus, stackSize int) *Ledger {
	if stackSize <= 0 {
		stackSize = world.DefaultMaxStack
	}
	return &Ledger{
		entries:   make(map[string]*model.ClaimEntry),
		totals:    make(map[string]*model.LedgerTotals),
		repo:      repo,
		host:      host,
		bus:       bus,
		stackSize: stackSize,
		log:       logger.Component("ledger"),
	}
}

func (l *Ledger) entry(owner string) *model.ClaimEntry {
	e, ok := l.entries[owner]
	if !ok {
		e = &model.ClaimEntry{Owner: owner, Currency: make(map[string]int)}
		l.entries[owner] = e
	}
	if e.Currency == nil {
		e.Currency = make(map[string]int)
	}
	return e
}

func (l *Ledger) total(owner string) *model.LedgerTotals {
	t, ok := l.totals[owner]
	if !ok {
		t = &model.LedgerTotals{
			CreditedCurrency: make(map[string]int),
			ClaimedCurrency:  make(map[string]int),
		}
		l.totals[owner] = t
	}
	return t
}

// CreditItems adds item stacks to owner's pending list.
func (l *Ledger) CreditItems(ctx context.Context, owner string, items ...model.ItemStack) {
	l.mu.Lock()
	e := l.entry(owner)
	t := l.total(owner)
	added := 0
	for _, it := range items {
		if it.IsEmpty() {
			continue
		}
		e.Items = append(e.Items, it.WithAmount(it.Amount))
		t.CreditedItems += it.Amount
		added += it.Amount
	}
	if added > 0 {
		l.persist(ctx, e.Clone())
	}
	l.mu.Unlock()

	if added == 0 {
		return
	}
	metrics.LedgerCredits.WithLabelValues("items").Add(float64(added))
	l.log.Debug("items credited", "player", owner, "amount", added)
}

// CreditCurrency adds amount of currency to owner's pending balance.
func (l *Ledger) CreditCurrency(ctx context.Context, owner, currency string, amount int) {
	if amount <= 0 {
		return
	}
	l.mu.Lock()
	e := l.entry(owner)
	e.Currency[currency] += amount
	l.total(owner).CreditedCurrency[currency] += amount
	l.persist(ctx, e.Clone())
	l.mu.Unlock()

	metrics.LedgerCredits.WithLabelValues("currency").Add(float64(amount))
	l.log.Debug("currency credited", "player", owner, "currency", currency, "amount", amount)
}

// Balance returns a snapshot of what owner can claim.
func (l *Ledger) Balance(owner string) model.ClaimEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[owner]; ok {
		return e.Clone()
	}
	return model.ClaimEntry{Owner: owner}
}

// Pending lists every non-empty entry.
func (l *Ledger) Pending() []model.ClaimEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.ClaimEntry, 0, len(l.entries))
	for _, e := range l.entries {
		if !e.IsEmpty() {
			out = append(out, e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Owner < out[j].Owner })
	return out
}

// Totals returns credited/claimed counters for owner. They are not persisted:
// Load opens them with the restored balance as credited, so credited minus
// claimed still equals the balance after a restart.
func (l *Ledger) Totals(owner string) model.LedgerTotals {
	l.mu.Lock()
	defer l.mu.Unlock()
	t := l.total(owner)
	out := model.LedgerTotals{
		CreditedCurrency: make(map[string]int, len(t.CreditedCurrency)),
		ClaimedCurrency:  make(map[string]int, len(t.ClaimedCurrency)),
		CreditedItems:    t.CreditedItems,
		ClaimedItems:     t.ClaimedItems,
	}
	for k, v := range t.CreditedCurrency {
		out.CreditedCurrency[k] = v
	}
	for k, v := range t.ClaimedCurrency {
		out.ClaimedCurrency[k] = v
	}
	return out
}

// CurrencyOwed sums a currency type over all entries.
func (l *Ledger) CurrencyOwed(currency string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := 0
	for _, e := range l.entries {
		total += e.Currency[currency]
	}
	return total
}

// ItemsOwed sums an item type over all entries.
func (l *Ledger) ItemsOwed(itemType string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := 0
	for _, e := range l.entries {
		for _, it := range e.Items {
			if it.Type == itemType {
				total += it.Amount
			}
		}
	}
	return total
}

// Claim drains owner's entry into their live inventory. Currency is handed out
// in stacks of the configured size; whatever does not fit is dropped at the
// player's position. The entry is cleared only after delivery.
func (l *Ledger) Claim(ctx context.Context, owner string) (model.ClaimReceipt, error) {
	p, ok := l.host.Online(owner)
	if !ok {
		return model.ClaimReceipt{}, apperrors.NewValidation("player must be online to claim")
	}

	var receipt model.ClaimReceipt
	l.host.Tick(func() {
		receipt = l.deliver(ctx, p)
	})

	if !receipt.IsEmpty() {
		metrics.ClaimsTotal.Inc()
		l.log.Info("claim delivered", "player", owner, "items", len(receipt.Items), "currency", receipt.Currency)
		_ = l.bus.Publish(ctx, model.Event{Kind: model.EventLedgerClaimed, Actor: owner, Payload: receipt})
	}
	return receipt, nil
}

func (l *Ledger) deliver(ctx context.Context, p world.Participant) model.ClaimReceipt {
	l.mu.Lock()
	defer l.mu.Unlock()

	owner := p.ID()
	receipt := model.ClaimReceipt{Owner: owner}
	e, ok := l.entries[owner]
	if !ok || e.IsEmpty() {
		return receipt
	}
	t := l.total(owner)

	for _, it := range e.Items {
		receipt.DroppedItems += world.GiveOrDrop(l.host, p, it)
		receipt.Items = append(receipt.Items, it)
		t.ClaimedItems += it.Amount
	}

	currencies := make([]string, 0, len(e.Currency))
	for c := range e.Currency {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)
	for _, c := range currencies {
		amount := e.Currency[c]
		if amount <= 0 {
			continue
		}
		for left := amount; left > 0; {
			n := min(l.stackSize, left)
			receipt.DroppedCurrency += world.GiveOrDrop(l.host, p, model.NewStack(c, n))
			left -= n
		}
		if receipt.Currency == nil {
			receipt.Currency = make(map[string]int)
		}
		receipt.Currency[c] = amount
		t.ClaimedCurrency[c] += amount
	}

	delete(l.entries, owner)
	if err := l.repo.DeleteClaim(ctx, owner); err != nil {
		l.persistFailed(ctx, owner, err)
	}
	return receipt
}

// Load replaces in-memory entries with the persisted ones and reopens the totals.
func (l *Ledger) Load(ctx context.Context) (int, error) {
	entries, err := l.repo.LoadClaims(ctx)
	if err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[string]*model.ClaimEntry, len(entries))
	l.totals = make(map[string]*model.LedgerTotals, len(entries))
	for _, e := range entries {
		if e.IsEmpty() {
			continue
		}
		c := e.Clone()
		l.entries[e.Owner] = &c

		t := l.total(e.Owner)
		for _, it := range c.Items {
			t.CreditedItems += it.Amount
		}
		for cur, n := range c.Currency {
			t.CreditedCurrency[cur] += n
		}
	}
	return len(l.entries), nil
}

// persist writes while l.mu is held so snapshots reach the store in order.
func (l *Ledger) persist(ctx context.Context, snapshot model.ClaimEntry) {
	if err := l.repo.SaveClaim(ctx, snapshot); err != nil {
		l.persistFailed(ctx, snapshot.Owner, err)
	}
}

func (l *Ledger) persistFailed(ctx context.Context, owner string, err error) {
	metrics.PersistenceFailures.WithLabelValues("ledger").Inc()
	logger.LogError(ctx, err, "ledger persistence failed, keeping in-memory state", "player", owner)
}
