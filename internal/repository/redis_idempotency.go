package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/mcbn/tradepost/internal/middleware"
	"github.com/mcbn/tradepost/internal/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// lockScript returns the stored record fields, or locks the key and returns nil.
var lockScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return redis.call('HGETALL', KEYS[1])
end
redis.call('HSET', KEYS[1], 'processing', '1', 'created_at', ARGV[1])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return false
`)

// RedisIdempotencyStore keeps one hash per key with status, body and a
// processing flag. Keys expire after ttl.
type RedisIdempotencyStore struct {
	client *RedisClient
	ttl    time.Duration
}

func NewRedisIdempotencyStore(client *RedisClient, ttl time.Duration) *RedisIdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisIdempotencyStore{client: client, ttl: ttl}
}

func (s *RedisIdempotencyStore) GetOrLock(key string) (*middleware.IdempotencyRecord, bool) {
	ctx := context.Background()
	fields, err := lockScript.Run(ctx, s.client.Client, []string{s.client.key("idem", key)},
		time.Now().Unix(), s.ttl.Milliseconds()).StringSlice()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		// without the store the request runs unguarded rather than failing
		logger.LogError(ctx, err, "idempotency lock failed, processing request", "key", key)
		return nil, false
	}
	return recordFromHash(fields), true
}

func (s *RedisIdempotencyStore) Save(key string, status int, body []byte) {
	ctx := context.Background()
	k := s.client.key("idem", key)
	pipe := s.client.Client.TxPipeline()
	pipe.HSet(ctx, k,
		"status", status,
		"body", body,
		"processing", "0",
		"created_at", time.Now().Unix(),
	)
	pipe.PExpire(ctx, k, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.LogError(ctx, err, "idempotency save failed", "key", key)
	}
}

func (s *RedisIdempotencyStore) Unlock(key string) {
	_ = s.client.Client.Del(context.Background(), s.client.key("idem", key)).Err()
}

func recordFromHash(fields []string) *middleware.IdempotencyRecord {
	rec := &middleware.IdempotencyRecord{}
	for i := 0; i+1 < len(fields); i += 2 {
		v := fields[i+1]
		switch fields[i] {
		case "status":
			rec.Status, _ = strconv.Atoi(v)
		case "body":
			rec.Body = []byte(v)
		case "processing":
			rec.Processing = v == "1"
		case "created_at":
			if sec, err := strconv.ParseInt(v, 10, 64); err == nil {
				rec.CreatedAt = time.Unix(sec, 0).UTC()
			}
		}
	}
	return rec
}
