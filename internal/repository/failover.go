package repository

import (
	"context"
	"sync/atomic"
	"time"

	"consultbook/internal/domain"
	"consultbook/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverCache routes to the primary cache (Redis) and switches to the
// fallback on the first error. The primary is retried once per minute.
type FailoverCache struct {
	primary   domain.ReadCache
	fallback  domain.ReadCache
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
	now       func() time.Time
}

func NewFailoverCache(primary, fallback domain.ReadCache, logger *zerolog.Logger) *FailoverCache {
	return &FailoverCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

// pick returns the cache to use for this call.
func (r *FailoverCache) pick() (domain.ReadCache, bool) {
	if !r.isDown.Load() {
		return r.primary, true
	}
	if r.now().UnixNano()-r.lastCheck.Load() > int64(recoveryInterval) {
		return r.primary, true
	}
	return r.fallback, false
}

// observe records the outcome of a primary call.
func (r *FailoverCache) observe(err error) {
	if err == nil {
		if r.isDown.CompareAndSwap(true, false) {
			r.logger.Info().Msg("Primary cache recovered")
		}
		return
	}
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("Primary cache failed, falling back to memory")
	}
	r.lastCheck.Store(r.now().UnixNano())
}

func call[T any](r *FailoverCache, fn func(domain.ReadCache) (T, error)) (T, error) {
	cache, primary := r.pick()
	out, err := fn(cache)
	if !primary {
		return out, err
	}
	r.observe(err)
	if err == nil {
		return out, nil
	}
	return fn(r.fallback)
}

func (r *FailoverCache) GetRating(ctx context.Context, serviceID string) (*models.RatingSummary, error) {
	return call(r, func(c domain.ReadCache) (*models.RatingSummary, error) { return c.GetRating(ctx, serviceID) })
}

func (r *FailoverCache) SetRating(ctx context.Context, summary *models.RatingSummary, ttl time.Duration) error {
	_, err := call(r, func(c domain.ReadCache) (struct{}, error) { return struct{}{}, c.SetRating(ctx, summary, ttl) })
	return err
}

// InvalidateRating always goes to both caches.
func (r *FailoverCache) InvalidateRating(ctx context.Context, serviceID string) error {
	_ = r.fallback.InvalidateRating(ctx, serviceID)
	err := r.primary.InvalidateRating(ctx, serviceID)
	r.observe(err)
	return err
}

func (r *FailoverCache) GetConsultant(ctx context.Context, id string) (*models.Consultant, error) {
	return call(r, func(c domain.ReadCache) (*models.Consultant, error) { return c.GetConsultant(ctx, id) })
}

func (r *FailoverCache) SetConsultant(ctx context.Context, consultant *models.Consultant, ttl time.Duration) error {
	_, err := call(r, func(c domain.ReadCache) (struct{}, error) { return struct{}{}, c.SetConsultant(ctx, consultant, ttl) })
	return err
}

func (r *FailoverCache) InvalidateConsultant(ctx context.Context, id string) error {
	_ = r.fallback.InvalidateConsultant(ctx, id)
	err := r.primary.InvalidateConsultant(ctx, id)
	r.observe(err)
	return err
}

func (r *FailoverCache) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return call(r, func(c domain.ReadCache) (bool, error) { return c.CheckRateLimit(ctx, key, limit, window) })
}

var (
	_ domain.ReadCache = (*RedisCache)(nil)
	_ domain.ReadCache = (*MemoryCache)(nil)
	_ domain.ReadCache = (*FailoverCache)(nil)
)
