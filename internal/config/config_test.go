package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultEconomySettings(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "DIAMOND", cfg.Economy.Currency)
	assert.Equal(t, 64, cfg.Economy.ClaimStackSize)
	assert.Equal(t, 10, cfg.Auctions.MinDurationMinutes)
	assert.Equal(t, 72, cfg.Auctions.MaxDurationHours)
	assert.Equal(t, 15, cfg.Auctions.ReminderIntervalMinutes)
	assert.Equal(t, 5, cfg.Shopkeepers.ShopperFeePercent)
	assert.InDelta(t, 0.20, cfg.Shopkeepers.WalkSpeed, 1e-9)
	assert.Equal(t, "teleport", cfg.Shopkeepers.Movement)
	assert.True(t, cfg.Shopkeepers.Enabled)
}
