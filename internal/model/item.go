package model

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ItemStack is an item type plus identity-affecting attributes (enchantments, names...) and an amount.
type ItemStack struct {
	Type   string            `json:"type"`
	Attrs  map[string]string `json:"attrs,omitempty"`
	Amount int               `json:"amount"`
}

func NewStack(itemType string, amount int) ItemStack {
	return ItemStack{Type: strings.ToUpper(itemType), Amount: amount}
}

func (s ItemStack) IsEmpty() bool {
	return s.Type == "" || s.Amount <= 0
}

// Similar compares type and attributes, ignoring amount.
func (s ItemStack) Similar(o ItemStack) bool {
	if s.Type != o.Type || len(s.Attrs) != len(o.Attrs) {
		return false
	}
	for k, v := range s.Attrs {
		if ov, ok := o.Attrs[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

func (s ItemStack) WithAmount(n int) ItemStack {
	out := ItemStack{Type: s.Type, Amount: n}
	if len(s.Attrs) > 0 {
		out.Attrs = make(map[string]string, len(s.Attrs))
		for k, v := range s.Attrs {
			out.Attrs[k] = v
		}
	}
	return out
}

// Template returns the stack normalized to amount 1 and an upper-case type.
func (s ItemStack) Template() ItemStack {
	t := s.WithAmount(1)
	t.Type = strings.ToUpper(t.Type)
	return t
}

// Key is a stable identity string (type plus sorted attributes).
func (s ItemStack) Key() string {
	if len(s.Attrs) == 0 {
		return s.Type
	}
	keys := make([]string, 0, len(s.Attrs))
	for k := range s.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(s.Type)
	for _, k := range keys {
		b.WriteString("|")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(s.Attrs[k])
	}
	return b.String()
}

func (s ItemStack) String() string {
	return fmt.Sprintf("%dx %s", s.Amount, s.Key())
}

// BlockPos is the world-location key of a block.
type BlockPos struct {
	World string `json:"world"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Z     int    `json:"z"`
}

func (p BlockPos) String() string {
	return fmt.Sprintf("%s;%d;%d;%d", p.World, p.X, p.Y, p.Z)
}

// ParseBlockPos is the inverse of BlockPos.String.
func ParseBlockPos(raw string) (BlockPos, error) {
	parts := strings.Split(strings.TrimSpace(raw), ";")
	if len(parts) != 4 || parts[0] == "" {
		return BlockPos{}, fmt.Errorf("invalid block position %q", raw)
	}
	coords := make([]int, 3)
	for i, p := range parts[1:] {
		n, err := strconv.Atoi(p)
		if err != nil {
			return BlockPos{}, fmt.Errorf("invalid block position %q: %w", raw, err)
		}
		coords[i] = n
	}
	return BlockPos{World: parts[0], X: coords[0], Y: coords[1], Z: coords[2]}, nil
}

// Standing is where an entity stands when visiting the block (centered, one block up).
func (p BlockPos) Standing() Vec3 {
	return Vec3{World: p.World, X: float64(p.X) + 0.5, Y: float64(p.Y) + 1, Z: float64(p.Z) + 0.5}
}

// Center is the middle of the block at floor level.
func (p BlockPos) Center() Vec3 {
	return Vec3{World: p.World, X: float64(p.X) + 0.5, Y: float64(p.Y), Z: float64(p.Z) + 0.5}
}

type Vec3 struct {
	World string  `json:"world"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
}

// DistanceSq is the squared euclidean distance. Points in different worlds are infinitely far apart.
func (v Vec3) DistanceSq(o Vec3) float64 {
	if v.World != o.World {
		return math.Inf(1)
	}
	dx, dy, dz := o.X-v.X, o.Y-v.Y, o.Z-v.Z
	return dx*dx + dy*dy + dz*dz
}

func (v Vec3) Block() BlockPos {
	return BlockPos{World: v.World, X: int(math.Floor(v.X)), Y: int(math.Floor(v.Y)), Z: int(math.Floor(v.Z))}
}
