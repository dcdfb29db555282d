package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcbn/tradepost/internal/model"
	"github.com/mcbn/tradepost/internal/pkg/apperrors"
	"github.com/mcbn/tradepost/internal/pkg/logger"
	"github.com/mcbn/tradepost/internal/pkg/metrics"
	"github.com/mcbn/tradepost/internal/world"
)

// KeeperManager tracks shopkeeper entities and the shops linked to them.
// Commands that take no keeper id act on the owner's most recent keeper.
type KeeperManager struct {
	mu       sync.RWMutex
	keepers  map[string]*model.ShopKeeper
	repo     KeeperRepo
	host     world.Host
	entities world.EntityHost
	shops    *ShopRegistry
	enabled  bool
	log      *slog.Logger
}

func NewKeeperManager(repo KeeperRepo, host world.Host, entities world.EntityHost, shops *ShopRegistry, enabled bool) *KeeperManager {
	return &KeeperManager{
		keepers:  make(map[string]*model.ShopKeeper),
		repo:     repo,
		host:     host,
		entities: entities,
		shops:    shops,
		enabled:  enabled,
		log:      logger.Component("keepers"),
	}
}

// Create spawns a keeper where the owner stands.
func (m *KeeperManager) Create(ctx context.Context, owner string) (*model.ShopKeeper, error) {
	if !m.enabled {
		return nil, apperrors.NewValidation("shopkeepers are disabled")
	}
	p, ok := m.host.Online(owner)
	if !ok {
		return nil, apperrors.NewValidation("player must be online to place a shopkeeper")
	}
	at := p.Position()
	k := &model.ShopKeeper{
		ID:        uuid.NewString(),
		Owner:     owner,
		Home:      at.Block(),
		CreatedAt: time.Now().UTC(),
	}
	m.entities.SpawnEntity(k.ID, at)

	m.mu.Lock()
	m.keepers[k.ID] = k
	m.persist(ctx, k.Clone())
	m.mu.Unlock()

	m.log.Info("keeper created", "keeper_id", k.ID, "player", owner, "home", k.Home.String())
	return k.Clone(), nil
}

// Resolve returns the keeper with id, or owner's latest keeper when id is empty.
func (m *KeeperManager) Resolve(owner, id string) (*model.ShopKeeper, error) {
	if id == "" {
		if k, ok := m.Latest(owner); ok {
			return k, nil
		}
		return nil, apperrors.New(apperrors.ErrKeeperNotFound, "you have no shopkeeper", nil)
	}
	k, ok := m.Get(id)
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrKeeperNotFound, "shopkeeper %s not found", id)
	}
	if k.Owner != owner {
		return nil, apperrors.New(apperrors.ErrNotOwner, "not your shopkeeper", nil)
	}
	return k, nil
}

func (m *KeeperManager) Link(ctx context.Context, owner, id string, pos model.BlockPos) (*model.ShopKeeper, error) {
	if _, ok := m.shops.Get(pos); !ok {
		return nil, apperrors.Newf(apperrors.ErrShopNotFound, "no shop at %s", pos)
	}
	return m.mutate(ctx, owner, id, func(k *model.ShopKeeper) {
		if !k.IsLinked(pos) {
			k.Linked = append(k.Linked, pos)
		}
	})
}

func (m *KeeperManager) Unlink(ctx context.Context, owner, id string, pos model.BlockPos) (*model.ShopKeeper, error) {
	return m.mutate(ctx, owner, id, func(k *model.ShopKeeper) {
		out := k.Linked[:0]
		for _, p := range k.Linked {
			if p != pos {
				out = append(out, p)
			}
		}
		k.Linked = out
	})
}

func (m *KeeperManager) mutate(ctx context.Context, owner, id string, fn func(k *model.ShopKeeper)) (*model.ShopKeeper, error) {
	target, err := m.Resolve(owner, id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.keepers[target.ID]
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrKeeperNotFound, "shopkeeper %s not found", target.ID)
	}
	fn(k)
	snapshot := k.Clone()
	m.persist(ctx, snapshot)
	return snapshot, nil
}

func (m *KeeperManager) Remove(ctx context.Context, owner, id string) (*model.ShopKeeper, error) {
	k, err := m.Resolve(owner, id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	delete(m.keepers, k.ID)
	if err := m.repo.DeleteKeeper(ctx, k.ID); err != nil {
		m.persistFailed(ctx, k.ID, err)
	}
	m.mu.Unlock()
	m.entities.RemoveEntity(k.ID)
	m.log.Info("keeper removed", "keeper_id", k.ID, "player", owner)
	return k, nil
}

func (m *KeeperManager) Get(id string) (*model.ShopKeeper, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	k, ok := m.keepers[id]
	if !ok {
		return nil, false
	}
	return k.Clone(), true
}

// ListByOwner returns owner's keepers, oldest first.
func (m *KeeperManager) ListByOwner(owner string) []*model.ShopKeeper {
	m.mu.RLock()
	out := make([]*model.ShopKeeper, 0)
	for _, k := range m.keepers {
		if k.Owner == owner {
			out = append(out, k.Clone())
		}
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *KeeperManager) Latest(owner string) (*model.ShopKeeper, bool) {
	all := m.ListByOwner(owner)
	if len(all) == 0 {
		return nil, false
	}
	return all[len(all)-1], true
}

// Storefront lists the linked shops that still exist, as customers see them.
func (m *KeeperManager) Storefront(id string) ([]model.ShopInfo, error) {
	k, ok := m.Get(id)
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrKeeperNotFound, "shopkeeper %s not found", id)
	}
	out := make([]model.ShopInfo, 0, len(k.Linked))
	for _, pos := range k.Linked {
		info, err := m.shops.Info(pos)
		if err != nil {
			continue
		}
		out = append(out, info)
	}
	return out, nil
}

// StorefrontShop returns the shop at pos if keeper id sells from it.
func (m *KeeperManager) StorefrontShop(id string, pos model.BlockPos) (model.Shop, error) {
	k, ok := m.Get(id)
	if !ok {
		return model.Shop{}, apperrors.Newf(apperrors.ErrKeeperNotFound, "shopkeeper %s not found", id)
	}
	if !k.IsLinked(pos) {
		return model.Shop{}, apperrors.Newf(apperrors.ErrShopNotFound, "shopkeeper %s does not sell from %s", id, pos)
	}
	shop, ok := m.shops.Get(pos)
	if !ok {
		return model.Shop{}, apperrors.Newf(apperrors.ErrShopNotFound, "no shop at %s", pos)
	}
	return shop, nil
}

// Teleport moves the owner to their latest keeper's home block.
func (m *KeeperManager) Teleport(owner string) (model.Vec3, error) {
	k, err := m.Resolve(owner, "")
	if err != nil {
		return model.Vec3{}, err
	}
	to := k.Home.Center()
	if !m.entities.Teleport(owner, to) {
		return model.Vec3{}, apperrors.NewValidation("player not found")
	}
	return to, nil
}

// Load restores keepers and respawns any entity the world lost.
func (m *KeeperManager) Load(ctx context.Context) (int, error) {
	stored, err := m.repo.LoadKeepers(ctx)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	m.keepers = make(map[string]*model.ShopKeeper, len(stored))
	for _, k := range stored {
		if k == nil || k.ID == "" {
			continue
		}
		m.keepers[k.ID] = k.Clone()
	}
	m.mu.Unlock()

	for _, k := range stored {
		if k == nil {
			continue
		}
		if _, ok := m.entities.EntityPos(k.ID); !ok {
			m.entities.SpawnEntity(k.ID, k.Home.Center())
		}
	}
	return len(stored), nil
}

func (m *KeeperManager) persist(ctx context.Context, k *model.ShopKeeper) {
	if err := m.repo.SaveKeeper(ctx, k); err != nil {
		m.persistFailed(ctx, k.ID, err)
	}
}

func (m *KeeperManager) persistFailed(ctx context.Context, id string, err error) {
	metrics.PersistenceFailures.WithLabelValues("keepers").Inc()
	logger.LogError(ctx, err, "keeper persistence failed, keeping in-memory state", "keeper_id", id)
}
