package world

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/mcbn/tradepost/internal/model"
)

// ContainerStock is a physical inventory that can be counted and mutated.
type ContainerStock interface {
	Count(template model.ItemStack) int
	Remove(template model.ItemStack, n int) int
	Add(stack model.ItemStack) int
}

// Holdings is a participant's live inventory.
type Holdings interface {
	ContainerStock
	CountType(itemType string) int
	RemoveType(itemType string, n int) int
	Slot(i int) (model.ItemStack, bool)
}

// Participant is a reachable (online) player.
type Participant interface {
	ID() string
	Holdings() Holdings
	Position() model.Vec3
}

// Host is what the economy needs from the world.
type Host interface {
	// Tick runs fn on the single logical tick; economy mutations never interleave.
	Tick(fn func())
	ContainerAt(pos model.BlockPos) (ContainerStock, bool)
	Online(id string) (Participant, bool)
	Drop(pos model.Vec3, stack model.ItemStack)
	Notify(id, msg string)
}

// MarkerPlacer materializes shop signs.
type MarkerPlacer interface {
	PlaceMarker(pos model.BlockPos, text string)
	RemoveMarker(pos model.BlockPos)
}

// EntityHost moves shopkeeper entities around.
type EntityHost interface {
	SpawnEntity(id string, at model.Vec3)
	EntityPos(id string) (model.Vec3, bool)
	MoveEntity(id string, to model.Vec3) bool
	RemoveEntity(id string)
	SurfaceY(world string, x, z float64) float64
	Teleport(playerID string, to model.Vec3) bool
}

const SeaLevel = 64

type Player struct {
	id   string
	name string
	inv  *Inventory

	mu     sync.RWMutex
	online bool
	pos    model.Vec3
}

func (p *Player) ID() string            { return p.id }
func (p *Player) Name() string          { return p.name }
func (p *Player) Holdings() Holdings    { return p.inv }
func (p *Player) Inventory() *Inventory { return p.inv }

func (p *Player) Position() model.Vec3 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pos
}

func (p *Player) IsOnline() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.online
}

type Drop struct {
	Pos  model.Vec3      `json:"pos"`
	Item model.ItemStack `json:"item"`
	At   time.Time       `json:"at"`
}

// World is the in-memory reference host.
type World struct {
	tick sync.Mutex

	mu         sync.RWMutex
	players    map[string]*Player
	containers map[model.BlockPos]*Inventory
	markers    map[model.BlockPos]string
	entities   map[string]model.Vec3
	drops      []Drop
	mail       map[string][]string

	invSlots int
	maxStack int
}

func New(invSlots, maxStack int) *World {
	if invSlots <= 0 {
		invSlots = 36
	}
	if maxStack <= 0 {
		maxStack = DefaultMaxStack
	}
	return &World{
		players:    make(map[string]*Player),
		containers: make(map[model.BlockPos]*Inventory),
		markers:    make(map[model.BlockPos]string),
		entities:   make(map[string]model.Vec3),
		mail:       make(map[string][]string),
		invSlots:   invSlots,
		maxStack:   maxStack,
	}
}

func (w *World) Tick(fn func()) {
	w.tick.Lock()
	defer w.tick.Unlock()
	fn()
}

func (w *World) AddPlayer(id, name string, pos model.Vec3) *Player {
	w.mu.Lock()
	defer w.mu.Unlock()
	if p, ok := w.players[id]; ok {
		return p
	}
	p := &Player{id: id, name: name, inv: NewInventory(w.invSlots, w.maxStack), online: true, pos: pos}
	w.players[id] = p
	return p
}

// Player looks up a known player, online or not.
func (w *World) Player(id string) (*Player, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	p, ok := w.players[id]
	return p, ok
}

func (w *World) Players() []*Player {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]*Player, 0, len(w.players))
	for _, p := range w.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (w *World) Online(id string) (Participant, bool) {
	p, ok := w.Player(id)
	if !ok || !p.IsOnline() {
		return nil, false
	}
	return p, true
}

func (w *World) SetOnline(id string, online bool) {
	if p, ok := w.Player(id); ok {
		p.mu.Lock()
		p.online = online
		p.mu.Unlock()
	}
}

func (w *World) Teleport(playerID string, to model.Vec3) bool {
	p, ok := w.Player(playerID)
	if !ok {
		return false
	}
	p.mu.Lock()
	p.pos = to
	p.mu.Unlock()
	return true
}

func (w *World) PlaceContainer(pos model.BlockPos, slots int) *Inventory {
	w.mu.Lock()
	defer w.mu.Unlock()
	if inv, ok := w.containers[pos]; ok {
		return inv
	}
	inv := NewInventory(slots, w.maxStack)
	w.containers[pos] = inv
	return inv
}

func (w *World) Container(pos model.BlockPos) (*Inventory, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	inv, ok := w.containers[pos]
	return inv, ok
}

func (w *World) ContainerAt(pos model.BlockPos) (ContainerStock, bool) {
	inv, ok := w.Container(pos)
	if !ok {
		return nil, false
	}
	return inv, true
}

// BreakContainer removes the block and spills its contents on the ground.
func (w *World) BreakContainer(pos model.BlockPos) {
	w.mu.Lock()
	inv, ok := w.containers[pos]
	delete(w.containers, pos)
	w.mu.Unlock()
	if !ok {
		return
	}
	for _, s := range inv.Contents() {
		w.Drop(pos.Standing(), s)
	}
}

func (w *World) Drop(pos model.Vec3, stack model.ItemStack) {
	if stack.IsEmpty() {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.drops = append(w.drops, Drop{Pos: pos, Item: stack.WithAmount(stack.Amount), At: time.Now()})
}

func (w *World) Drops() []Drop {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]Drop(nil), w.drops...)
}

// GiveOrDrop adds the stack to the participant and drops the overflow at their feet.
// It returns the dropped amount.
func GiveOrDrop(h Host, p Participant, stack model.ItemStack) int {
	left := p.Holdings().Add(stack)
	if left > 0 {
		h.Drop(p.Position(), stack.WithAmount(left))
	}
	return left
}

// AddOrDrop adds the stack to the container and drops the overflow at its location.
func AddOrDrop(h Host, c ContainerStock, pos model.BlockPos, stack model.ItemStack) int {
	left := c.Add(stack)
	if left > 0 {
		h.Drop(pos.Standing(), stack.WithAmount(left))
	}
	return left
}

func (w *World) Notify(id, msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	box := append(w.mail[id], msg)
	if len(box) > 200 {
		box = box[len(box)-200:]
	}
	w.mail[id] = box
}

func (w *World) Messages(id string) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]string(nil), w.mail[id]...)
}

func (w *World) PlaceMarker(pos model.BlockPos, text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.markers[pos] = text
}

func (w *World) RemoveMarker(pos model.BlockPos) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.markers, pos)
}

func (w *World) Marker(pos model.BlockPos) (string, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	m, ok := w.markers[pos]
	return m, ok
}

func (w *World) SpawnEntity(id string, at model.Vec3) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entities[id] = at
}

func (w *World) EntityPos(id string) (model.Vec3, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	p, ok := w.entities[id]
	return p, ok
}

func (w *World) MoveEntity(id string, to model.Vec3) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.entities[id]; !ok {
		return false
	}
	w.entities[id] = to
	return true
}

func (w *World) RemoveEntity(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.entities, id)
}

// SurfaceY is one above the highest container in the column, or sea level.
func (w *World) SurfaceY(world string, x, z float64) float64 {
	bx, bz := int(math.Floor(x)), int(math.Floor(z))
	w.mu.RLock()
	defer w.mu.RUnlock()
	top := SeaLevel
	for pos := range w.containers {
		if pos.World == world && pos.X == bx && pos.Z == bz && pos.Y+1 > top {
			top = pos.Y + 1
		}
	}
	return float64(top)
}

// TotalOf counts an item type across players, containers and ground drops.
func (w *World) TotalOf(itemType string) int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	total := 0
	for _, p := range w.players {
		total += p.inv.CountType(itemType)
	}
	for _, c := range w.containers {
		total += c.CountType(itemType)
	}
	for _, d := range w.drops {
		if d.Item.Type == itemType {
			total += d.Item.Amount
		}
	}
	return total
}
