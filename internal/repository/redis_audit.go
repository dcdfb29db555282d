package repository

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/mcbn/tradepost/internal/model"
	"github.com/redis/go-redis/v9"
)

// RedisAuditRepo stores audit entries in sorted sets scored by creation time:
// one for everything and one per player, each trimmed to the newest listMax.
type RedisAuditRepo struct {
	client  *RedisClient
	listMax int
}

func NewRedisAuditRepo(client *RedisClient, listMax int) *RedisAuditRepo {
	if listMax <= 0 {
		listMax = 10000
	}
	return &RedisAuditRepo{client: client, listMax: listMax}
}

func (r *RedisAuditRepo) allKey() string { return r.client.key("audit") }

func (r *RedisAuditRepo) playerKey(id string) string { return r.client.key("audit", "player", id) }

func (r *RedisAuditRepo) Insert(ctx context.Context, entry *model.AuditLog) error {
	if entry == nil {
		return nil
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	member := redis.Z{Score: float64(entry.CreatedAt.UnixMilli()), Member: payload}
	keys := []string{r.allKey()}
	if entry.PlayerID != "" {
		keys = append(keys, r.playerKey(entry.PlayerID))
	}

	pipe := r.client.Client.TxPipeline()
	for _, k := range keys {
		pipe.ZAdd(ctx, k, member)
		pipe.ZRemRangeByRank(ctx, k, 0, int64(-r.listMax-1))
	}
	_, err = pipe.Exec(ctx)
	return err
}

// List returns entries newest first. limit defaults to 100 and is capped at 1000.
func (r *RedisAuditRepo) List(ctx context.Context, playerID string, limit int, from, to *time.Time) ([]*model.AuditLog, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	key := r.allKey()
	if playerID != "" {
		key = r.playerKey(playerID)
	}
	rng := &redis.ZRangeBy{Min: "-inf", Max: "+inf", Count: int64(limit)}
	if from != nil {
		rng.Min = strconv.FormatInt(from.UnixMilli(), 10)
	}
	if to != nil {
		rng.Max = strconv.FormatInt(to.UnixMilli(), 10)
	}

	raw, err := r.client.Client.ZRevRangeByScore(ctx, key, rng).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*model.AuditLog, 0, len(raw))
	for _, doc := range raw {
		var entry model.AuditLog
		if err := json.Unmarshal([]byte(doc), &entry); err != nil {
			continue
		}
		out = append(out, &entry)
	}
	return out, nil
}
