package service

import (
	"context"
	"sort"
	"sync"

	"github.com/mcbn/tradepost/internal/model"
)

type ShopRepo interface {
	SaveShop(ctx context.Context, shop model.Shop) error
	DeleteShop(ctx context.Context, pos model.BlockPos) error
	LoadShops(ctx context.Context) ([]model.Shop, error)
}

type AuctionRepo interface {
	SaveAuction(ctx context.Context, a *model.Auction) error
	DeleteAuction(ctx context.Context, id string) error
	LoadAuctions(ctx context.Context) ([]*model.Auction, error)
}

type LedgerRepo interface {
	SaveClaim(ctx context.Context, entry model.ClaimEntry) error
	DeleteClaim(ctx context.Context, owner string) error
	LoadClaims(ctx context.Context) ([]model.ClaimEntry, error)
}

type OrderRepo interface {
	SaveOrder(ctx context.Context, o *model.PurchaseOrder) error
	DeleteOrder(ctx context.Context, id string) error
	LoadOrders(ctx context.Context) ([]*model.PurchaseOrder, error)
}

type KeeperRepo interface {
	SaveKeeper(ctx context.Context, k *model.ShopKeeper) error
	DeleteKeeper(ctx context.Context, id string) error
	LoadKeepers(ctx context.Context) ([]*model.ShopKeeper, error)
}

// Store is one durable record set per registry.
type Store interface {
	ShopRepo
	AuctionRepo
	LedgerRepo
	OrderRepo
	KeeperRepo
}

// MemoryStore keeps every record set in process memory. Used when no Redis or Postgres is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	shops    map[model.BlockPos]model.Shop
	auctions map[string]*model.Auction
	claims   map[string]model.ClaimEntry
	orders   map[string]*model.PurchaseOrder
	keepers  map[string]*model.ShopKeeper
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		shops:    make(map[model.BlockPos]model.Shop),
		auctions: make(map[string]*model.Auction),
		claims:   make(map[string]model.ClaimEntry),
		orders:   make(map[string]*model.PurchaseOrder),
		keepers:  make(map[string]*model.ShopKeeper),
	}
}

func (s *MemoryStore) SaveShop(ctx context.Context, shop model.Shop) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	shop.Template = shop.Template.Template()
	s.shops[shop.Pos] = shop
	return nil
}

func (s *MemoryStore) DeleteShop(ctx context.Context, pos model.BlockPos) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.shops, pos)
	return nil
}

func (s *MemoryStore) LoadShops(ctx context.Context) ([]model.Shop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Shop, 0, len(s.shops))
	for _, shop := range s.shops {
		out = append(out, shop)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

func (s *MemoryStore) SaveAuction(ctx context.Context, a *model.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auctions[a.ID] = a.Clone()
	return nil
}

func (s *MemoryStore) DeleteAuction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.auctions, id)
	return nil
}

func (s *MemoryStore) LoadAuctions(ctx context.Context) ([]*model.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Auction, 0, len(s.auctions))
	for _, a := range s.auctions {
		out = append(out, a.Clone())
	}
	return out, nil
}

func (s *MemoryStore) SaveClaim(ctx context.Context, entry model.ClaimEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims[entry.Owner] = entry.Clone()
	return nil
}

func (s *MemoryStore) DeleteClaim(ctx context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.claims, owner)
	return nil
}

func (s *MemoryStore) LoadClaims(ctx context.Context) ([]model.ClaimEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ClaimEntry, 0, len(s.claims))
	for _, e := range s.claims {
		out = append(out, e.Clone())
	}
	return out, nil
}

func (s *MemoryStore) SaveOrder(ctx context.Context, o *model.PurchaseOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o.Clone()
	return nil
}

func (s *MemoryStore) DeleteOrder(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.orders, id)
	return nil
}

func (s *MemoryStore) LoadOrders(ctx context.Context) ([]*model.PurchaseOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.PurchaseOrder, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o.Clone())
	}
	return out, nil
}

func (s *MemoryStore) SaveKeeper(ctx context.Context, k *model.ShopKeeper) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keepers[k.ID] = k.Clone()
	return nil
}

func (s *MemoryStore) DeleteKeeper(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keepers, id)
	return nil
}

func (s *MemoryStore) LoadKeepers(ctx context.Context) ([]*model.ShopKeeper, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.ShopKeeper, 0, len(s.keepers))
	for _, k := range s.keepers {
		out = append(out, k.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
