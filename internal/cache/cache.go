// Package cache provides a Redis-backed cache for assembled query
// results, with a no-op fallback when Redis is not configured.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wkchan/flightaudit/internal/models"
)

type Cache interface {
	Get(ctx context.Context, q models.AuditQuery) (*models.QueryResult, bool)
	Set(ctx context.Context, q models.AuditQuery, result *models.QueryResult) error
	Close() error
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	TTL      time.Duration
}

func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Host: "localhost",
		Port: "6379",
		TTL:  10 * time.Minute,
	}
}

func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Host + ":" + cfg.Port,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisCache{client: client, ttl: cfg.TTL}, nil
}

func (c *RedisCache) Get(ctx context.Context, q models.AuditQuery) (*models.QueryResult, bool) {
	data, err := c.client.Get(ctx, generateKey(q)).Bytes()
	if err != nil {
		return nil, false
	}

	var result models.QueryResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, false
	}
	return &result, true
}

func (c *RedisCache) Set(ctx context.Context, q models.AuditQuery, result *models.QueryResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, generateKey(q), data, c.ttl).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

type NoOpCache struct{}

func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

func (c *NoOpCache) Get(ctx context.Context, q models.AuditQuery) (*models.QueryResult, bool) {
	return nil, false
}

func (c *NoOpCache) Set(ctx context.Context, q models.AuditQuery, result *models.QueryResult) error {
	return nil
}

func (c *NoOpCache) Close() error {
	return nil
}

func generateKey(q models.AuditQuery) string {
	data, _ := json.Marshal(q)
	hash := sha256.Sum256(data)
	return "audit:" + hex.EncodeToString(hash[:])
}
