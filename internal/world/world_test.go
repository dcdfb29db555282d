package world

import (
	"testing"

	"github.com/mcbn/tradepost/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInventoryAddSpillsOverflow(t *testing.T) {
	inv := NewInventory(2, 64)

	left := inv.Add(model.NewStack("STRING", 100))
	assert.Equal(t, 0, left)
	assert.Equal(t, 100, inv.CountType("STRING"))

	left = inv.Add(model.NewStack("STRING", 40))
	assert.Equal(t, 12, left, "two slots hold 128 at most")

	left = inv.Add(model.NewStack("DIAMOND", 1))
	assert.Equal(t, 1, left)
}

func TestInventoryRemoveRespectsAttributes(t *testing.T) {
	inv := NewInventory(4, 64)
	plain := model.NewStack("ENCHANTED_BOOK", 3)
	mending := model.ItemStack{Type: "ENCHANTED_BOOK", Attrs: map[string]string{"enchant": "mending"}, Amount: 2}
	inv.Add(plain)
	inv.Add(mending)

	assert.Equal(t, 2, inv.Count(mending.Template()))
	assert.Equal(t, 5, inv.CountType("ENCHANTED_BOOK"))

	removed := inv.Remove(mending.Template(), 5)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 3, inv.CountType("ENCHANTED_BOOK"))
	assert.Equal(t, 0, inv.Count(mending.Template()))
}

func TestGiveOrDropMaterializesOverflow(t *testing.T) {
	w := New(1, 64)
	p := w.AddPlayer("p1", "Alex", model.Vec3{World: "world", X: 5, Y: 70, Z: 5})

	dropped := GiveOrDrop(w, p, model.NewStack("COAL", 80))
	assert.Equal(t, 16, dropped)
	assert.Equal(t, 64, p.Inventory().CountType("COAL"))

	drops := w.Drops()
	require.Len(t, drops, 1)
	assert.Equal(t, 16, drops[0].Item.Amount)
	assert.Equal(t, p.Position(), drops[0].Pos)
	assert.Equal(t, 80, w.TotalOf("COAL"))
}

func TestOnlineHidesOfflinePlayers(t *testing.T) {
	w := New(9, 64)
	w.AddPlayer("p1", "Alex", model.Vec3{World: "world"})

	_, ok := w.Online("p1")
	assert.True(t, ok)

	w.SetOnline("p1", false)
	_, ok = w.Online("p1")
	assert.False(t, ok)

	_, known := w.Player("p1")
	assert.True(t, known)
}

func TestCatalogMatch(t *testing.T) {
	c := NewCatalog("CUSTOM_GEM")
	name, ok := c.Match(" mending book ")
	assert.True(t, ok)
	assert.Equal(t, "MENDING_BOOK", name)

	_, ok = c.Match("custom_gem")
	assert.True(t, ok)

	_, ok = c.Match("unobtainium")
	assert.False(t, ok)
}
