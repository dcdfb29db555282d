package service

import (
	"context"
	"testing"
	"time"

	"github.com/mcbn/tradepost/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemindOnceOnlyOnlinePlayersWithClaims(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	addPlayer(w, "alice")
	addPlayer(w, "bob")
	addPlayer(w, "carol")
	w.SetOnline("bob", false)

	ledger := NewLedger(NewMemoryStore(), w, NewBus(), 64)
	ledger.CreditCurrency(ctx, "alice", currency, 12)
	ledger.CreditItems(ctx, "alice", model.NewStack("BOW", 1))
	ledger.CreditCurrency(ctx, "bob", currency, 3)

	r := NewClaimReminder(ledger, w, time.Minute)
	assert.Equal(t, 1, r.RemindOnce())

	msgs := w.Messages("alice")
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "1 item stack(s) and 12 DIAMOND")
	assert.Empty(t, w.Messages("bob"))
	assert.Empty(t, w.Messages("carol"))

	_, err := ledger.Claim(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, r.RemindOnce())
}

func TestReminderRunStopsWithContext(t *testing.T) {
	w := newWorld()
	addPlayer(w, "alice")
	ledger := NewLedger(NewMemoryStore(), w, NewBus(), 64)
	ledger.CreditCurrency(context.Background(), "alice", currency, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewClaimReminder(ledger, w, 5*time.Millisecond).Run(ctx) }()

	require.Eventually(t, func() bool { return len(w.Messages("alice")) >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reminder loop did not stop")
	}

	assert.NoError(t, NewClaimReminder(ledger, w, 0).Run(context.Background()), "disabled loop returns at once")
}
