package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/mcbn/tradepost/internal/config"
	"github.com/redis/go-redis/v9"
)

type RedisClient struct {
	Client *redis.Client
	Prefix string
}

func NewRedisClient(cfg *config.Config) (*RedisClient, error) {
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address is empty")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisClient{Client: rdb, Prefix: cfg.Redis.KeyPrefix}, nil
}

// WrapRedis adopts an existing client, e.g. one pointed at miniredis.
func WrapRedis(rdb *redis.Client, prefix string) *RedisClient {
	return &RedisClient{Client: rdb, Prefix: prefix}
}

func (r *RedisClient) key(parts ...string) string {
	k := r.Prefix
	for _, p := range parts {
		if k == "" {
			k = p
			continue
		}
		k += ":" + p
	}
	return k
}

func (r *RedisClient) Close() error {
	return r.Client.Close()
}
