package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"pricedesk/backend/internal/domain"
)

type RedisDictionaryCache struct {
	client *redis.Client
}

func NewRedisDictionaryCache(addr string, password string, db int) *RedisDictionaryCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisDictionaryCache{client: client}
}

func (c *RedisDictionaryCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisDictionaryCache) Close() error {
	return c.client.Close()
}

func (c *RedisDictionaryCache) Get(ctx context.Context, key string) (*domain.FormDictionaries, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var dict domain.FormDictionaries
	if err := json.Unmarshal([]byte(val), &dict); err != nil {
		return nil, false, err
	}
	return &dict, true, nil
}

func (c *RedisDictionaryCache) Set(ctx context.Context, key string, value *domain.FormDictionaries, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}

func (c *RedisDictionaryCache) Invalidate(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}
