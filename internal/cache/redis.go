package cache

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v7"
	"github.com/sirupsen/logrus"
)

// RedisCache shares one edge cache across gateway replicas. Entries are
// stored as JSON and live until explicit invalidation or Redis' own
// eviction reclaims them.
type RedisCache struct {
	client *redis.Client
	log    *logrus.Entry
}

func NewRedisCache(logger *logrus.Logger, address, password string, db int) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{
			Addr:     address,
			Password: password,
			DB:       db,
		}),
		log: logger.WithField("component", "redis_cache"),
	}
}

func (c *RedisCache) Ping() error {
	return c.client.Ping().Err()
}

func (c *RedisCache) Get(_ context.Context, key string) (*Entry, bool) {
	data, err := c.client.Get(key).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.log.WithError(err).WithField("key", key).Warn("Cache read failed")
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("Corrupt cache entry")
		return nil, false
	}
	return &entry, true
}

func (c *RedisCache) Put(_ context.Context, key string, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.client.Set(key, data, 0).Err()
}

func (c *RedisCache) Invalidate(_ context.Context, key string) error {
	return c.client.Del(key).Err()
}
