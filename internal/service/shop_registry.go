package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mcbn/tradepost/internal/market"
	"github.com/mcbn/tradepost/internal/model"
	"github.com/mcbn/tradepost/internal/pkg/apperrors"
	"github.com/mcbn/tradepost/internal/pkg/logger"
	"github.com/mcbn/tradepost/internal/pkg/metrics"
	"github.com/mcbn/tradepost/internal/world"
)

type CreateShopInput struct {
	Owner      string
	Pos        model.BlockPos
	Template   *model.ItemStack // nil: first stack found in the container
	BundleSize int
	Price      int
	Currency   string
	Facing     string
}

// ShopRegistry owns every shop, keyed by container location. Reads return copies.
type ShopRegistry struct {
	mu       sync.RWMutex
	shops    map[model.BlockPos]model.Shop
	repo     ShopRepo
	host     world.Host
	markers  world.MarkerPlacer
	bus      *Bus
	currency string
	log      *slog.Logger
}

func NewShopRegistry(repo ShopRepo, host world.Host, markers world.MarkerPlacer, bus *Bus, defaultCurrency string) *ShopRegistry {
	return &ShopRegistry{
		shops:    make(map[model.BlockPos]model.Shop),
		repo:     repo,
		host:     host,
		markers:  markers,
		bus:      bus,
		currency: strings.ToUpper(defaultCurrency),
		log:      logger.Component("shops"),
	}
}

func (r *ShopRegistry) Create(ctx context.Context, in CreateShopInput) (model.Shop, error) {
	if in.BundleSize <= 0 {
		return model.Shop{}, apperrors.NewValidation("bundle size must be positive")
	}
	if in.Price <= 0 {
		return model.Shop{}, apperrors.NewValidation("price must be positive")
	}
	container, ok := r.host.ContainerAt(in.Pos)
	if !ok {
		return model.Shop{}, apperrors.Newf(apperrors.ErrNotAContainer, "no container at %s", in.Pos)
	}

	var template model.ItemStack
	switch {
	case in.Template != nil && !in.Template.IsEmpty():
		template = in.Template.Template()
	default:
		first, ok := firstStack(container)
		if !ok {
			return model.Shop{}, apperrors.NewValidation("container is empty, put the item to sell inside first")
		}
		template = first.Template()
	}

	currency := strings.ToUpper(in.Currency)
	if currency == "" {
		currency = r.currency
	}
	shop := model.Shop{
		Owner:      in.Owner,
		Pos:        in.Pos,
		Template:   template,
		BundleSize: in.BundleSize,
		Price:      in.Price,
		Currency:   currency,
		Facing:     in.Facing,
		CreatedAt:  time.Now().UTC(),
	}

	if _, exists := r.Get(in.Pos); exists {
		return model.Shop{}, apperrors.Newf(apperrors.ErrShopExists, "shop already exists at %s", in.Pos)
	}
	if err := r.bus.Publish(ctx, model.Event{Kind: model.EventShopCreated, Actor: in.Owner, Payload: shop}); err != nil {
		return model.Shop{}, err
	}

	r.mu.Lock()
	if _, exists := r.shops[in.Pos]; exists {
		r.mu.Unlock()
		return model.Shop{}, apperrors.Newf(apperrors.ErrShopExists, "shop already exists at %s", in.Pos)
	}
	r.shops[in.Pos] = shop
	r.mu.Unlock()

	r.persist(ctx, shop)
	r.placeMarker(shop)
	r.log.Info("shop created", "shop", shop.Key(), "player", shop.Owner, "item", template.Key(), "bundle", shop.BundleSize, "price", shop.Price)
	r.bus.Tutorial(in.Owner, "shop.create")
	return shop, nil
}

// firstStack works on any ContainerStock that can list its contents.
func firstStack(c world.ContainerStock) (model.ItemStack, bool) {
	if f, ok := c.(interface{ First() (model.ItemStack, bool) }); ok {
		return f.First()
	}
	return model.ItemStack{}, false
}

// Remove deletes the shop at pos. Only the owner or an admin may remove it.
func (r *ShopRegistry) Remove(ctx context.Context, actor string, pos model.BlockPos, admin bool) (model.Shop, error) {
	r.mu.Lock()
	shop, ok := r.shops[pos]
	if !ok {
		r.mu.Unlock()
		return model.Shop{}, apperrors.Newf(apperrors.ErrShopNotFound, "no shop at %s", pos)
	}
	if shop.Owner != actor && !admin {
		r.mu.Unlock()
		return model.Shop{}, apperrors.New(apperrors.ErrNotOwner, "only the owner can remove this shop", nil)
	}
	delete(r.shops, pos)
	r.mu.Unlock()

	if err := r.repo.DeleteShop(ctx, pos); err != nil {
		metrics.PersistenceFailures.WithLabelValues("shops").Inc()
		logger.LogError(ctx, err, "shop delete not persisted", "shop", shop.Key())
	}
	if r.markers != nil {
		r.markers.RemoveMarker(pos)
	}
	r.log.Info("shop removed", "shop", shop.Key(), "player", actor)
	_ = r.bus.Publish(ctx, model.Event{Kind: model.EventShopRemoved, Actor: actor, Payload: shop})
	return shop, nil
}

func (r *ShopRegistry) Get(pos model.BlockPos) (model.Shop, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.shops[pos]
	return s, ok
}

// All returns a snapshot ordered by location key.
func (r *ShopRegistry) All() []model.Shop {
	r.mu.RLock()
	out := make([]model.Shop, 0, len(r.shops))
	for _, s := range r.shops {
		out = append(out, s)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

func (r *ShopRegistry) filter(keep func(model.Shop) bool) []model.Shop {
	all := r.All()
	out := all[:0]
	for _, s := range all {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

func (r *ShopRegistry) ByOwner(owner string) []model.Shop {
	return r.filter(func(s model.Shop) bool { return s.Owner == owner })
}

func (r *ShopRegistry) ByTemplate(template model.ItemStack) []model.Shop {
	return r.filter(func(s model.Shop) bool { return s.Template.Similar(template) })
}

func (r *ShopRegistry) ByItemType(itemType string) []model.Shop {
	itemType = strings.ToUpper(itemType)
	return r.filter(func(s model.Shop) bool { return s.Template.Type == itemType })
}

// StockBundles reports how many bundles the shop's container can supply, -1 if unreadable.
func (r *ShopRegistry) StockBundles(shop model.Shop) int {
	c, ok := r.host.ContainerAt(shop.Pos)
	if !ok || shop.BundleSize <= 0 {
		return -1
	}
	return c.Count(shop.Template) / shop.BundleSize
}

func (r *ShopRegistry) Info(pos model.BlockPos) (model.ShopInfo, error) {
	shop, ok := r.Get(pos)
	if !ok {
		return model.ShopInfo{}, apperrors.Newf(apperrors.ErrShopNotFound, "no shop at %s", pos)
	}
	stock := r.StockBundles(shop)
	return model.ShopInfo{
		Shop:           shop,
		UnitPrice:      market.UnitPrice(shop.Price, shop.BundleSize).StringFixed(2),
		UnitPriceCeil:  market.CeilUnitPrice(shop.Price, shop.BundleSize),
		StockBundles:   max(stock, 0),
		ContainerFound: stock >= 0,
	}, nil
}

// Offers builds a price-sorted book of every shop selling itemType.
func (r *ShopRegistry) Offers(itemType string) *market.OfferBook {
	book := market.NewOfferBook(strings.ToUpper(itemType))
	book.Snapshot(r.ByItemType(itemType), r.StockBundles)
	return book
}

// Load replaces the registry with persisted shops and re-places their markers.
func (r *ShopRegistry) Load(ctx context.Context) (int, error) {
	shops, err := r.repo.LoadShops(ctx)
	if err != nil {
		return 0, err
	}
	valid := shops[:0]
	for _, s := range shops {
		if s.BundleSize <= 0 || s.Price <= 0 || s.Template.IsEmpty() {
			r.log.Warn("skipping unusable persisted shop", "shop", s.Key(), "bundle", s.BundleSize, "price", s.Price)
			continue
		}
		valid = append(valid, s)
	}
	r.mu.Lock()
	r.shops = make(map[model.BlockPos]model.Shop, len(valid))
	for _, s := range valid {
		r.shops[s.Pos] = s
	}
	r.mu.Unlock()
	for _, s := range valid {
		r.placeMarker(s)
	}
	return len(valid), nil
}

func (r *ShopRegistry) persist(ctx context.Context, shop model.Shop) {
	if err := r.repo.SaveShop(ctx, shop); err != nil {
		metrics.PersistenceFailures.WithLabelValues("shops").Inc()
		logger.LogError(ctx, err, "shop not persisted, keeping in-memory state", "shop", shop.Key())
	}
}

func (r *ShopRegistry) placeMarker(shop model.Shop) {
	if r.markers == nil {
		return
	}
	r.markers.PlaceMarker(shop.Pos, MarkerText(shop))
}

// MarkerText is the sign shown above a shop.
func MarkerText(s model.Shop) string {
	return fmt.Sprintf("[Shop] %dx %s | %d %s", s.BundleSize, s.Template.Key(), s.Price, s.Currency)
}
