package service

import (
	"context"
	"testing"

	"github.com/mcbn/tradepost/internal/model"
	"github.com/mcbn/tradepost/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimIsIdempotent(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	p := addPlayer(w, "alice")
	ledger := NewLedger(NewMemoryStore(), w, NewBus(), 64)

	ledger.CreditCurrency(ctx, "alice", currency, 10)
	ledger.CreditItems(ctx, "alice", model.NewStack("BOW", 1))

	first, err := ledger.Claim(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 10, first.Currency[currency])
	assert.Len(t, first.Items, 1)
	assert.Equal(t, 10, p.Inventory().CountType(currency))
	assert.Equal(t, 1, p.Inventory().CountType("BOW"))

	second, err := ledger.Claim(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, second.IsEmpty())
	assert.Equal(t, 10, p.Inventory().CountType(currency))
}

func TestClaimSplitsCurrencyAndDropsOverflow(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	p := addPlayer(w, "alice")
	for i := 0; i < 34; i++ {
		p.Inventory().Add(model.NewStack("COBBLESTONE", 64))
	}
	ledger := NewLedger(NewMemoryStore(), w, NewBus(), 64)
	ledger.CreditCurrency(ctx, "alice", currency, 200)

	receipt, err := ledger.Claim(ctx, "alice")
	require.NoError(t, err)

	assert.Equal(t, 128, p.Inventory().CountType(currency), "two free slots")
	assert.Equal(t, 72, receipt.DroppedCurrency)
	assert.Equal(t, 200, w.TotalOf(currency))
	assert.True(t, ledger.Balance("alice").IsEmpty())
}

func TestClaimRequiresOnlinePlayer(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	addPlayer(w, "bob")
	w.SetOnline("bob", false)
	ledger := NewLedger(NewMemoryStore(), w, NewBus(), 64)
	ledger.CreditCurrency(ctx, "bob", currency, 5)

	_, err := ledger.Claim(ctx, "bob")
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
	assert.Equal(t, 5, ledger.Balance("bob").Currency[currency])
}

func TestLedgerTotalsBalance(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	addPlayer(w, "alice")
	ledger := NewLedger(NewMemoryStore(), w, NewBus(), 64)

	ledger.CreditCurrency(ctx, "alice", currency, 7)
	ledger.CreditCurrency(ctx, "alice", currency, 3)
	_, err := ledger.Claim(ctx, "alice")
	require.NoError(t, err)
	ledger.CreditCurrency(ctx, "alice", currency, 4)

	totals := ledger.Totals("alice")
	balance := ledger.Balance("alice").Currency[currency]
	assert.Equal(t, 14, totals.CreditedCurrency[currency])
	assert.Equal(t, 10, totals.ClaimedCurrency[currency])
	assert.Equal(t, totals.CreditedCurrency[currency]-totals.ClaimedCurrency[currency], balance)
	assert.Equal(t, 4, ledger.CurrencyOwed(currency))
}

func TestLedgerTotalsBalanceAfterLoad(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	addPlayer(w, "alice")
	store := NewMemoryStore()
	before := NewLedger(store, w, NewBus(), 64)
	before.CreditCurrency(ctx, "alice", currency, 7)
	before.CreditItems(ctx, "alice", model.NewStack("BOW", 1))
	_, err := before.Claim(ctx, "alice")
	require.NoError(t, err)
	before.CreditCurrency(ctx, "alice", currency, 5)

	after := NewLedger(store, w, NewBus(), 64)
	_, err = after.Load(ctx)
	require.NoError(t, err)
	after.CreditCurrency(ctx, "alice", currency, 2)

	totals := after.Totals("alice")
	balance := after.Balance("alice")
	assert.Equal(t, 7, balance.Currency[currency])
	assert.Equal(t, balance.Currency[currency], totals.CreditedCurrency[currency]-totals.ClaimedCurrency[currency])
	assert.Zero(t, totals.CreditedItems-totals.ClaimedItems)
}

func TestLedgerKeepsStateWhenStoreFails(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	p := addPlayer(w, "alice")
	ledger := NewLedger(brokenStore{NewMemoryStore()}, w, NewBus(), 64)

	ledger.CreditCurrency(ctx, "alice", currency, 9)
	assert.Equal(t, 9, ledger.Balance("alice").Currency[currency])

	_, err := ledger.Claim(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 9, p.Inventory().CountType(currency))

	_, err = ledger.Load(ctx)
	assert.ErrorIs(t, err, errStoreDown)
}

func TestLedgerReloadsPersistedEntries(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	store := NewMemoryStore()
	NewLedger(store, w, NewBus(), 64).CreditItems(ctx, "carol", model.NewStack("SADDLE", 1))

	fresh := NewLedger(store, w, NewBus(), 64)
	n, err := fresh.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, fresh.ItemsOwed("SADDLE"))
}
