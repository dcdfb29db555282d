package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/mcbn/tradepost/internal/pkg/logger"
	"github.com/mcbn/tradepost/internal/world"
)

// ClaimReminder periodically tells online players about unclaimed ledger entries.
type ClaimReminder struct {
	ledger   *Ledger
	host     world.Host
	interval time.Duration
	log      *slog.Logger
}

func NewClaimReminder(ledger *Ledger, host world.Host, interval time.Duration) *ClaimReminder {
	return &ClaimReminder{ledger: ledger, host: host, interval: interval, log: logger.Component("reminder")}
}

// Run sends reminders right away and then every interval until ctx ends.
// A non-positive interval disables reminders.
func (r *ClaimReminder) Run(ctx context.Context) error {
	if r.interval <= 0 {
		r.log.Info("claim reminders disabled")
		return nil
	}
	r.RemindOnce()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.RemindOnce()
		}
	}
}

// RemindOnce notifies every online player with a pending claim and returns how many were told.
func (r *ClaimReminder) RemindOnce() int {
	sent := 0
	for _, entry := range r.ledger.Pending() {
		if _, ok := r.host.Online(entry.Owner); !ok {
			continue
		}
		r.host.Notify(entry.Owner, ReminderMessage(len(entry.Items), entry.Currency))
		sent++
	}
	if sent > 0 {
		r.log.Debug("claim reminders sent", "players", sent)
	}
	return sent
}

func ReminderMessage(items int, currency map[string]int) string {
	var owed []string
	currencies := make([]string, 0, len(currency))
	for c, n := range currency {
		if n > 0 {
			currencies = append(currencies, c)
		}
	}
	sort.Strings(currencies)
	if items > 0 {
		owed = append(owed, fmt.Sprintf("%d item stack(s)", items))
	}
	for _, c := range currencies {
		owed = append(owed, fmt.Sprintf("%d %s", currency[c], c))
	}
	return "Auction reminder: you still have " + strings.Join(owed, " and ") + " to collect. Use claim to pick everything up."
}
