package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mcbn/tradepost/internal/model"
	"github.com/mcbn/tradepost/internal/service"
	"github.com/redis/go-redis/v9"
)

const (
	hashShops    = "shops"
	hashAuctions = "auctions"
	hashClaims   = "claims"
	hashOrders   = "orders"
	hashKeepers  = "keepers"
)

// RedisStore keeps each record set as one hash of JSON documents.
type RedisStore struct {
	client *RedisClient
}

var _ service.Store = (*RedisStore)(nil)

func NewRedisStore(client *RedisClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) put(ctx context.Context, set, field string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", set, field, err)
	}
	if err := s.client.Client.HSet(ctx, s.client.key(set), field, payload).Err(); err != nil {
		return fmt.Errorf("redis hset %s/%s: %w", set, field, err)
	}
	return nil
}

func (s *RedisStore) del(ctx context.Context, set, field string) error {
	if err := s.client.Client.HDel(ctx, s.client.key(set), field).Err(); err != nil {
		return fmt.Errorf("redis hdel %s/%s: %w", set, field, err)
	}
	return nil
}

// loadAll decodes every document of a set. Undecodable documents are skipped
// so one corrupt record does not block startup.
func loadAll[T any](ctx context.Context, s *RedisStore, set string) ([]T, error) {
	raw, err := s.client.Client.HGetAll(ctx, s.client.key(set)).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("redis hgetall %s: %w", set, err)
	}
	out := make([]T, 0, len(raw))
	for _, doc := range raw {
		var v T
		if err := json.Unmarshal([]byte(doc), &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *RedisStore) SaveShop(ctx context.Context, shop model.Shop) error {
	return s.put(ctx, hashShops, shop.Key(), shop)
}

func (s *RedisStore) DeleteShop(ctx context.Context, pos model.BlockPos) error {
	return s.del(ctx, hashShops, pos.String())
}

func (s *RedisStore) LoadShops(ctx context.Context) ([]model.Shop, error) {
	return loadAll[model.Shop](ctx, s, hashShops)
}

func (s *RedisStore) SaveAuction(ctx context.Context, a *model.Auction) error {
	return s.put(ctx, hashAuctions, a.ID, a)
}

func (s *RedisStore) DeleteAuction(ctx context.Context, id string) error {
	return s.del(ctx, hashAuctions, id)
}

func (s *RedisStore) LoadAuctions(ctx context.Context) ([]*model.Auction, error) {
	return loadAll[*model.Auction](ctx, s, hashAuctions)
}

func (s *RedisStore) SaveClaim(ctx context.Context, entry model.ClaimEntry) error {
	return s.put(ctx, hashClaims, entry.Owner, entry)
}

func (s *RedisStore) DeleteClaim(ctx context.Context, owner string) error {
	return s.del(ctx, hashClaims, owner)
}

func (s *RedisStore) LoadClaims(ctx context.Context) ([]model.ClaimEntry, error) {
	return loadAll[model.ClaimEntry](ctx, s, hashClaims)
}

func (s *RedisStore) SaveOrder(ctx context.Context, o *model.PurchaseOrder) error {
	return s.put(ctx, hashOrders, o.ID, o)
}

func (s *RedisStore) DeleteOrder(ctx context.Context, id string) error {
	return s.del(ctx, hashOrders, id)
}

func (s *RedisStore) LoadOrders(ctx context.Context) ([]*model.PurchaseOrder, error) {
	return loadAll[*model.PurchaseOrder](ctx, s, hashOrders)
}

func (s *RedisStore) SaveKeeper(ctx context.Context, k *model.ShopKeeper) error {
	return s.put(ctx, hashKeepers, k.ID, k)
}

func (s *RedisStore) DeleteKeeper(ctx context.Context, id string) error {
	return s.del(ctx, hashKeepers, id)
}

func (s *RedisStore) LoadKeepers(ctx context.Context) ([]*model.ShopKeeper, error) {
	return loadAll[*model.ShopKeeper](ctx, s, hashKeepers)
}

// Counts reports how many records each set holds, in one round trip.
func (s *RedisStore) Counts(ctx context.Context) (map[string]int64, error) {
	sets := []string{hashShops, hashAuctions, hashClaims, hashOrders, hashKeepers}
	pipe := s.client.Client.Pipeline()
	cmds := make([]*redis.IntCmd, len(sets))
	for i, set := range sets {
		cmds[i] = pipe.HLen(ctx, s.client.key(set))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("redis pipeline: %w", err)
	}
	out := make(map[string]int64, len(sets))
	for i, set := range sets {
		out[set] = cmds[i].Val()
	}
	return out, nil
}
