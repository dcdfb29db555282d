package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mcbn/tradepost/internal/model"
	"github.com/mcbn/tradepost/internal/world"
)

const currency = "DIAMOND"

var shopPos = model.BlockPos{World: "world", X: 10, Y: 64, Z: 10}

func newWorld() *world.World {
	return world.New(36, 64)
}

func addPlayer(w *world.World, id string, items ...model.ItemStack) *world.Player {
	p := w.AddPlayer(id, id, model.Vec3{World: "world"})
	for _, it := range items {
		p.Inventory().Add(it)
	}
	return p
}

func diamonds(n int) model.ItemStack { return model.NewStack(currency, n) }

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// shortContainer reports full stock but hands out at most `gives` items per Remove.
type shortContainer struct {
	world.ContainerStock
	gives int
}

func (s *shortContainer) Remove(t model.ItemStack, n int) int {
	return s.ContainerStock.Remove(t, min(n, s.gives))
}

// shortHost wraps a world so that the container at pos under-delivers.
type shortHost struct {
	*world.World
	pos   model.BlockPos
	gives int
}

func (h *shortHost) ContainerAt(pos model.BlockPos) (world.ContainerStock, bool) {
	c, ok := h.World.ContainerAt(pos)
	if !ok || pos != h.pos {
		return c, ok
	}
	return &shortContainer{ContainerStock: c, gives: h.gives}, true
}

var errStoreDown = errors.New("store unavailable")

// brokenStore fails every write and every load.
type brokenStore struct{ *MemoryStore }

func (brokenStore) SaveShop(context.Context, model.Shop) error             { return errStoreDown }
func (brokenStore) SaveAuction(context.Context, *model.Auction) error      { return errStoreDown }
func (brokenStore) SaveClaim(context.Context, model.ClaimEntry) error      { return errStoreDown }
func (brokenStore) DeleteClaim(context.Context, string) error              { return errStoreDown }
func (brokenStore) SaveOrder(context.Context, *model.PurchaseOrder) error  { return errStoreDown }
func (brokenStore) SaveKeeper(context.Context, *model.ShopKeeper) error    { return errStoreDown }
func (brokenStore) LoadClaims(context.Context) ([]model.ClaimEntry, error) { return nil, errStoreDown }

// recorder captures published events.
type recorder struct {
	mu     sync.Mutex
	events []model.Event
	veto   model.EventKind
	topics []string
}

func (r *recorder) OnEvent(_ context.Context, ev model.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	if ev.Kind == r.veto {
		return errors.New("vetoed by test")
	}
	return nil
}

func (r *recorder) OnTutorialStep(player, topic string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, player+":"+topic)
}

func (r *recorder) kinds() []model.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.EventKind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}
