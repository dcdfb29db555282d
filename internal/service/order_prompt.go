package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/mcbn/tradepost/internal/model"
	"github.com/mcbn/tradepost/internal/world"
)

type PromptState string

const (
	PromptAwaitingItem     PromptState = "awaiting_item"
	PromptAwaitingAmount   PromptState = "awaiting_amount"
	PromptAwaitingMaxPrice PromptState = "awaiting_max_price"
	PromptDone             PromptState = "done"
	PromptCancelled        PromptState = "cancelled"
)

type PromptReply struct {
	State       PromptState          `json:"state"`
	Message     string               `json:"message"`
	Suggestions []string             `json:"suggestions,omitempty"`
	Order       *model.PurchaseOrder `json:"order,omitempty"`
	Saved       bool                 `json:"saved"`
}

const (
	askItemMsg     = "Item name (e.g. STRING, DIAMOND, MENDING_BOOK), 'done' to finish or 'cancel':"
	askMaxPriceMsg = "Max price per item (blank = any):"
)

// OrderPrompt collects an order one answer at a time:
// item -> amount -> max price -> item ... until "done" or "cancel".
type OrderPrompt struct {
	order   *model.PurchaseOrder
	catalog *world.Catalog
	state   PromptState
	item    string
	amount  int
}

func NewOrderPrompt(order *model.PurchaseOrder, catalog *world.Catalog) *OrderPrompt {
	return &OrderPrompt{order: order, catalog: catalog, state: PromptAwaitingItem}
}

func (p *OrderPrompt) State() PromptState { return p.state }

func (p *OrderPrompt) Order() *model.PurchaseOrder { return p.order.Clone() }

// Feed advances the prompt with one line of input.
func (p *OrderPrompt) Feed(input string) PromptReply {
	in := strings.TrimSpace(input)
	switch p.state {
	case PromptAwaitingItem:
		switch strings.ToLower(in) {
		case "cancel":
			p.state = PromptCancelled
			return PromptReply{State: p.state, Message: "Cancelled."}
		case "done":
			p.state = PromptDone
			return PromptReply{State: p.state, Order: p.order.Clone()}
		}
		name, ok := p.catalog.Match(in)
		if !ok {
			return PromptReply{
				State:       p.state,
				Message:     "Unknown item. " + askItemMsg,
				Suggestions: p.catalog.Suggest(in, 3),
			}
		}
		p.item = name
		p.state = PromptAwaitingAmount
		return PromptReply{State: p.state, Message: fmt.Sprintf("Amount of %s (number):", name)}

	case PromptAwaitingAmount:
		n, err := strconv.Atoi(in)
		if err != nil || n <= 0 {
			return PromptReply{State: p.state, Message: "Please enter a positive number."}
		}
		p.amount = n
		p.state = PromptAwaitingMaxPrice
		return PromptReply{State: p.state, Message: askMaxPriceMsg}

	case PromptAwaitingMaxPrice:
		limit := 0
		if in != "" {
			if n, err := strconv.Atoi(in); err == nil && n > 0 {
				limit = n
			}
		}
		p.order.Put(p.item, p.amount, limit)
		msg := fmt.Sprintf("Added: %dx %s", p.amount, p.item)
		if limit > 0 {
			msg += fmt.Sprintf(" (max %d each)", limit)
		}
		p.item, p.amount = "", 0
		p.state = PromptAwaitingItem
		return PromptReply{State: p.state, Message: msg + ". " + askItemMsg}
	}
	return PromptReply{State: p.state}
}

// PromptSessions holds at most one open prompt per player.
type PromptSessions struct {
	mu       sync.Mutex
	sessions map[string]*OrderPrompt
	book     *OrderBook
}

func NewPromptSessions(book *OrderBook) *PromptSessions {
	return &PromptSessions{sessions: make(map[string]*OrderPrompt), book: book}
}

// Start opens (or restarts) a prompt for owner.
func (s *PromptSessions) Start(owner string) PromptReply {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[owner] = NewOrderPrompt(s.book.Create(owner), s.book.Catalog())
	return PromptReply{State: PromptAwaitingItem, Message: "Creating a shopping list. " + askItemMsg}
}

func (s *PromptSessions) Active(owner string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[owner]
	return ok
}

// Feed routes input to owner's prompt, opening one if none is active. A
// finished non-empty order replaces owner's stored order.
func (s *PromptSessions) Feed(ctx context.Context, owner, input string) PromptReply {
	s.mu.Lock()
	p, ok := s.sessions[owner]
	s.mu.Unlock()
	if !ok {
		return s.Start(owner)
	}

	reply := p.Feed(input)
	switch reply.State {
	case PromptCancelled:
		s.end(owner)
	case PromptDone:
		s.end(owner)
		order := reply.Order
		if order == nil || len(order.Wanted) == 0 {
			reply.Message = "No entries."
			reply.Order = nil
			return reply
		}
		if existing, ok := s.book.ByOwner(owner); ok {
			order.ID = existing.ID
		}
		s.book.Put(ctx, order)
		reply.Saved = true
		reply.Message = "Shopping list saved. Hire a shopkeeper to run it.\n" + RenderText(order)
	}
	return reply
}

func (s *PromptSessions) end(owner string) {
	s.mu.Lock()
	delete(s.sessions, owner)
	s.mu.Unlock()
}
