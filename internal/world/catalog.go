package world

import (
	"sort"
	"strings"
	"sync"

	"github.com/sahilm/fuzzy"
)

// Catalog is the set of item types the world knows about.
type Catalog struct {
	mu    sync.RWMutex
	items map[string]struct{}
}

var defaultItems = []string{
	"DIAMOND", "EMERALD", "GOLD_INGOT", "IRON_INGOT", "COPPER_INGOT", "NETHERITE_INGOT",
	"COAL", "REDSTONE", "LAPIS_LAZULI", "QUARTZ", "AMETHYST_SHARD",
	"STRING", "FEATHER", "LEATHER", "BONE", "GUNPOWDER", "SLIME_BALL", "ENDER_PEARL", "BLAZE_ROD",
	"WHEAT", "CARROT", "POTATO", "BREAD", "APPLE", "GOLDEN_APPLE", "SUGAR_CANE", "PAPER", "BOOK",
	"ENCHANTED_BOOK", "MENDING_BOOK", "EXPERIENCE_BOTTLE", "NAME_TAG", "SADDLE",
	"OAK_LOG", "SPRUCE_LOG", "BIRCH_LOG", "STONE", "COBBLESTONE", "DIRT", "SAND", "GLASS", "TORCH",
	"ARROW", "BOW", "SHIELD", "TOTEM_OF_UNDYING", "ELYTRA", "SHULKER_SHELL",
}

func NewCatalog(extra ...string) *Catalog {
	c := &Catalog{items: make(map[string]struct{}, len(defaultItems)+len(extra))}
	for _, it := range defaultItems {
		c.items[it] = struct{}{}
	}
	for _, it := range extra {
		c.Register(it)
	}
	return c
}

func (c *Catalog) Register(item string) {
	item = strings.ToUpper(strings.TrimSpace(item))
	if item == "" {
		return
	}
	c.mu.Lock()
	c.items[item] = struct{}{}
	c.mu.Unlock()
}

// Match resolves a user-typed name (any case, spaces for underscores).
func (c *Catalog) Match(name string) (string, bool) {
	key := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
	key = strings.TrimPrefix(key, "MINECRAFT:")
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.items[key]
	return key, ok
}

func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.items))
	for k := range c.items {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Suggest returns up to n known item names closest to a mistyped one.
func (c *Catalog) Suggest(name string, n int) []string {
	query := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
	if query == "" || n <= 0 {
		return nil
	}
	names := c.Names()
	matches := fuzzy.Find(query, names)
	out := make([]string, 0, n)
	for _, m := range matches {
		if len(out) == n {
			break
		}
		out = append(out, m.Str)
	}
	return out
}
