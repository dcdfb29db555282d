package world

import (
	"sync"

	"github.com/mcbn/tradepost/internal/model"
)

const DefaultMaxStack = 64

// Inventory is a fixed set of slots. Every method is safe for concurrent use.
type Inventory struct {
	mu       sync.Mutex
	slots    []model.ItemStack
	maxStack int
}

func NewInventory(size, maxStack int) *Inventory {
	if size <= 0 {
		size = 27
	}
	if maxStack <= 0 {
		maxStack = DefaultMaxStack
	}
	return &Inventory{
		slots:    make([]model.ItemStack, size),
		maxStack: maxStack,
	}
}

func (inv *Inventory) Size() int {
	return len(inv.slots)
}

// Count returns the number of items similar to template.
func (inv *Inventory) Count(template model.ItemStack) int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	total := 0
	for _, s := range inv.slots {
		if !s.IsEmpty() && s.Similar(template) {
			total += s.Amount
		}
	}
	return total
}

// CountType counts by item type only, ignoring attributes. Used for currency.
func (inv *Inventory) CountType(itemType string) int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	total := 0
	for _, s := range inv.slots {
		if !s.IsEmpty() && s.Type == itemType {
			total += s.Amount
		}
	}
	return total
}

// Remove takes up to n items similar to template and returns how many were taken.
func (inv *Inventory) Remove(template model.ItemStack, n int) int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.removeWhere(n, func(s model.ItemStack) bool { return s.Similar(template) })
}

func (inv *Inventory) RemoveType(itemType string, n int) int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.removeWhere(n, func(s model.ItemStack) bool { return s.Type == itemType })
}

func (inv *Inventory) removeWhere(n int, match func(model.ItemStack) bool) int {
	if n <= 0 {
		return 0
	}
	removed := 0
	for i := range inv.slots {
		if removed == n {
			break
		}
		s := inv.slots[i]
		if s.IsEmpty() || !match(s) {
			continue
		}
		take := min(s.Amount, n-removed)
		s.Amount -= take
		removed += take
		if s.Amount == 0 {
			s = model.ItemStack{}
		}
		inv.slots[i] = s
	}
	return removed
}

// Add merges the stack into partial stacks first, then empty slots.
// It returns the amount that did not fit.
func (inv *Inventory) Add(stack model.ItemStack) int {
	if stack.IsEmpty() {
		return 0
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()

	left := stack.Amount
	for i := range inv.slots {
		if left == 0 {
			return 0
		}
		s := inv.slots[i]
		if s.IsEmpty() || !s.Similar(stack) || s.Amount >= inv.maxStack {
			continue
		}
		put := min(inv.maxStack-s.Amount, left)
		s.Amount += put
		left -= put
		inv.slots[i] = s
	}
	for i := range inv.slots {
		if left == 0 {
			return 0
		}
		if !inv.slots[i].IsEmpty() {
			continue
		}
		put := min(inv.maxStack, left)
		inv.slots[i] = stack.WithAmount(put)
		left -= put
	}
	return left
}

// Slot returns a copy of the stack in slot i.
func (inv *Inventory) Slot(i int) (model.ItemStack, bool) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if i < 0 || i >= len(inv.slots) || inv.slots[i].IsEmpty() {
		return model.ItemStack{}, false
	}
	s := inv.slots[i]
	return s.WithAmount(s.Amount), true
}

// First returns the first non-empty stack.
func (inv *Inventory) First() (model.ItemStack, bool) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	for _, s := range inv.slots {
		if !s.IsEmpty() {
			return s.WithAmount(s.Amount), true
		}
	}
	return model.ItemStack{}, false
}

// Contents is a snapshot of the non-empty stacks.
func (inv *Inventory) Contents() []model.ItemStack {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	out := make([]model.ItemStack, 0, len(inv.slots))
	for _, s := range inv.slots {
		if !s.IsEmpty() {
			out = append(out, s.WithAmount(s.Amount))
		}
	}
	return out
}
