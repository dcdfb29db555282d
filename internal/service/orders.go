package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/mcbn/tradepost/internal/model"
	"github.com/mcbn/tradepost/internal/pkg/apperrors"
	"github.com/mcbn/tradepost/internal/pkg/logger"
	"github.com/mcbn/tradepost/internal/pkg/metrics"
	"github.com/mcbn/tradepost/internal/world"
)

const orderTitle = "Shopping list"

var (
	amountFirstLine = regexp.MustCompile(`(?i)^(\d+)\s*x\s+([A-Z0-9_]+)(?:\s+max\s+(\d+))?$`)
	itemFirstLine   = regexp.MustCompile(`(?i)^([A-Z0-9_]+)\s+(\d+)(?:\s+max\s+(\d+))?$`)
)

// OrderBook keeps one standing purchase order per owner.
type OrderBook struct {
	mu         sync.RWMutex
	orders     map[string]*model.PurchaseOrder
	repo       OrderRepo
	catalog    *world.Catalog
	feePercent int
	log        *slog.Logger
}

func NewOrderBook(repo OrderRepo, catalog *world.Catalog, feePercent int) *OrderBook {
	if catalog == nil {
		catalog = world.NewCatalog()
	}
	return &OrderBook{
		orders:     make(map[string]*model.PurchaseOrder),
		repo:       repo,
		catalog:    catalog,
		feePercent: feePercent,
		log:        logger.Component("orders"),
	}
}

// Create returns a fresh, unsaved order for owner.
func (b *OrderBook) Create(owner string) *model.PurchaseOrder {
	return model.NewPurchaseOrder(uuid.NewString(), owner, b.feePercent)
}

func (b *OrderBook) Get(id string) (*model.PurchaseOrder, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, ok := b.orders[id]
	if !ok {
		return nil, false
	}
	return o.Clone(), true
}

func (b *OrderBook) ByOwner(owner string) (*model.PurchaseOrder, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, o := range b.orders {
		if o.Owner == owner {
			return o.Clone(), true
		}
	}
	return nil, false
}

// Put stores o as its owner's order, replacing any previous one.
func (b *OrderBook) Put(ctx context.Context, o *model.PurchaseOrder) {
	snapshot := o.Clone()
	b.mu.Lock()
	for id, existing := range b.orders {
		if existing.Owner == o.Owner && id != o.ID {
			delete(b.orders, id)
			b.deleteStored(ctx, id)
		}
	}
	b.orders[o.ID] = snapshot
	b.persist(ctx, snapshot)
	b.mu.Unlock()
}

// Update applies fn to the stored order and persists the result.
func (b *OrderBook) Update(ctx context.Context, id string, fn func(o *model.PurchaseOrder)) (*model.PurchaseOrder, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[id]
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrOrderNotFound, "order %s not found", id)
	}
	fn(o)
	snapshot := o.Clone()
	b.persist(ctx, snapshot)
	return snapshot, nil
}

func (b *OrderBook) Delete(ctx context.Context, id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.orders[id]; !ok {
		return false
	}
	delete(b.orders, id)
	b.deleteStored(ctx, id)
	return true
}

func (b *OrderBook) Load(ctx context.Context) (int, error) {
	stored, err := b.repo.LoadOrders(ctx)
	if err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders = make(map[string]*model.PurchaseOrder, len(stored))
	for _, o := range stored {
		if o == nil || o.ID == "" {
			continue
		}
		b.orders[o.ID] = o.Clone()
	}
	return len(b.orders), nil
}

// ParseText reads order lines such as "64x STRING", "64x STRING max 2" or
// "STRING 64 max 2". Lines that do not parse, or name unknown items, are skipped.
func (b *OrderBook) ParseText(owner, text string) *model.PurchaseOrder {
	o := b.Create(owner)
	for _, raw := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line := strings.TrimSpace(strings.ReplaceAll(raw, "§", ""))
		if line == "" {
			continue
		}
		var item, amount, maxPrice string
		if m := amountFirstLine.FindStringSubmatch(line); m != nil {
			amount, item, maxPrice = m[1], m[2], m[3]
		} else if m := itemFirstLine.FindStringSubmatch(line); m != nil {
			item, amount, maxPrice = m[1], m[2], m[3]
		} else {
			continue
		}
		name, known := b.catalog.Match(item)
		n, err := strconv.Atoi(amount)
		if !known || err != nil || n <= 0 {
			continue
		}
		limit := 0
		if maxPrice != "" {
			limit, _ = strconv.Atoi(maxPrice)
		}
		o.Put(name, n, limit)
	}
	return o
}

// PutText parses text and stores it as owner's order, keeping the existing order id.
func (b *OrderBook) PutText(ctx context.Context, owner, text string) (*model.PurchaseOrder, error) {
	o := b.ParseText(owner, text)
	if len(o.Wanted) == 0 {
		return nil, apperrors.NewValidation("no valid order lines")
	}
	if existing, ok := b.ByOwner(owner); ok {
		o.ID = existing.ID
	}
	b.Put(ctx, o)
	b.log.Info("order stored", "player", owner, "order_id", o.ID, "items", len(o.Wanted))
	return o.Clone(), nil
}

// RenderText is the inverse of ParseText.
func RenderText(o *model.PurchaseOrder) string {
	var sb strings.Builder
	sb.WriteString(orderTitle + "\n")
	sb.WriteString(strings.Repeat("-", len(orderTitle)) + "\n")
	for _, item := range o.Items() {
		fmt.Fprintf(&sb, "%dx %s", o.Wanted[item], item)
		if limit := o.MaxPriceFor(item); limit > 0 {
			fmt.Fprintf(&sb, " max %d", limit)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (b *OrderBook) Catalog() *world.Catalog { return b.catalog }

func (b *OrderBook) persist(ctx context.Context, o *model.PurchaseOrder) {
	if err := b.repo.SaveOrder(ctx, o); err != nil {
		metrics.PersistenceFailures.WithLabelValues("orders").Inc()
		logger.LogError(ctx, err, "order not persisted, keeping in-memory state", "order_id", o.ID)
	}
}

func (b *OrderBook) deleteStored(ctx context.Context, id string) {
	if err := b.repo.DeleteOrder(ctx, id); err != nil {
		metrics.PersistenceFailures.WithLabelValues("orders").Inc()
		logger.LogError(ctx, err, "order delete not persisted", "order_id", id)
	}
}
