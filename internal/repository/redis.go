package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"consultbook/internal/config"
	"consultbook/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	ratingKeyPrefix     = "rating:"
	consultantKeyPrefix = "consultant:"
	rateLimitKeyPrefix  = "rate_limit:"
)

// RedisCache keeps read models in Redis. Misses return (nil, nil).
type RedisCache struct {
	client *redis.Client
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func getJSON[T any](ctx context.Context, client *redis.Client, key string) (*T, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	val, err := client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s from redis: %w", key, err)
	}

	var out T
	if err := json.Unmarshal(val, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return &out, nil
}

func setJSON(ctx context.Context, client *redis.Client, key string, value any, ttl time.Duration) error {
	if client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s in redis: %w", key, err)
	}
	return nil
}

func del(ctx context.Context, client *redis.Client, key string) error {
	if client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete %s from redis: %w", key, err)
	}
	return nil
}

func (r *RedisCache) GetRating(ctx context.Context, serviceID string) (*models.RatingSummary, error) {
	return getJSON[models.RatingSummary](ctx, r.client, ratingKeyPrefix+serviceID)
}

func (r *RedisCache) SetRating(ctx context.Context, summary *models.RatingSummary, ttl time.Duration) error {
	return setJSON(ctx, r.client, ratingKeyPrefix+summary.ServiceID, summary, ttl)
}

func (r *RedisCache) InvalidateRating(ctx context.Context, serviceID string) error {
	return del(ctx, r.client, ratingKeyPrefix+serviceID)
}

func (r *RedisCache) GetConsultant(ctx context.Context, id string) (*models.Consultant, error) {
	return getJSON[models.Consultant](ctx, r.client, consultantKeyPrefix+id)
}

func (r *RedisCache) SetConsultant(ctx context.Context, consultant *models.Consultant, ttl time.Duration) error {
	return setJSON(ctx, r.client, consultantKeyPrefix+consultant.ID, consultant, ttl)
}

func (r *RedisCache) InvalidateConsultant(ctx context.Context, id string) error {
	return del(ctx, r.client, consultantKeyPrefix+id)
}

// CheckRateLimit counts calls per key in a fixed window.
func (r *RedisCache) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	k := rateLimitKeyPrefix + key

	count, err := r.client.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, k, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}
	return count <= int64(limit), nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
