package service

import (
	"context"
	"sync"
	"time"

	"github.com/mcbn/tradepost/internal/model"
	"github.com/mcbn/tradepost/internal/pkg/apperrors"
	"github.com/mcbn/tradepost/internal/pkg/logger"
)

// Listener receives integration events. Returning an error from a cancelable
// event vetoes the operation. Listeners must not call back into the economy services.
type Listener interface {
	OnEvent(ctx context.Context, ev model.Event) error
}

type ListenerFunc func(ctx context.Context, ev model.Event) error

func (f ListenerFunc) OnEvent(ctx context.Context, ev model.Event) error {
	return f(ctx, ev)
}

// TutorialHook is an optional capability. Listeners implementing it get
// nudged when a player performs an economy action for the first time.
type TutorialHook interface {
	OnTutorialStep(player, topic string)
}

type Bus struct {
	mu        sync.RWMutex
	listeners map[int]Listener
	nextID    int
	seen      map[string]struct{} // player|topic already nudged
}

func NewBus() *Bus {
	return &Bus{
		listeners: make(map[int]Listener),
		seen:      make(map[string]struct{}),
	}
}

// Subscribe registers l and returns a function that removes it.
func (b *Bus) Subscribe(l Listener) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = l
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}
}

func (b *Bus) snapshot() []Listener {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Listener, 0, len(b.listeners))
	for i := 0; i < b.nextID; i++ {
		if l, ok := b.listeners[i]; ok {
			out = append(out, l)
		}
	}
	return out
}

// Publish delivers ev to every listener in subscription order. For cancelable
// events the first error stops delivery and is returned as a CANCELLED AppError.
func (b *Bus) Publish(ctx context.Context, ev model.Event) error {
	if b == nil {
		return nil
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	for _, l := range b.snapshot() {
		if err := l.OnEvent(ctx, ev); err != nil {
			if ev.Kind.Cancelable() {
				return apperrors.New(apperrors.ErrCancelled, string(ev.Kind)+" vetoed", err)
			}
			logger.Warn("event listener failed", "kind", ev.Kind, "error", err)
		}
	}
	return nil
}

// Tutorial notifies TutorialHook listeners once per player and topic.
func (b *Bus) Tutorial(player, topic string) {
	if b == nil {
		return
	}
	key := player + "|" + topic
	b.mu.Lock()
	if _, done := b.seen[key]; done {
		b.mu.Unlock()
		return
	}
	b.seen[key] = struct{}{}
	b.mu.Unlock()

	for _, l := range b.snapshot() {
		if hook, ok := l.(TutorialHook); ok {
			hook.OnTutorialStep(player, topic)
		}
	}
}
