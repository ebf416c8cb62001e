package repository

import (
	"context"
	"sync"
	"time"

	"consultbook/internal/models"
)

type memoryEntry struct {
	value     any
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

// MemoryCache is the in-process fallback used when Redis is not configured
// or unreachable.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	rateLimits map[string]*rateLimitEntry
	now        func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries:    make(map[string]memoryEntry),
		rateLimits: make(map[string]*rateLimitEntry),
		now:        time.Now,
	}
}

func (r *MemoryCache) load(key string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		return nil, false
	}
	if e.expired(r.now()) {
		delete(r.entries, key)
		return nil, false
	}
	return e.value, true
}

func (r *MemoryCache) store(key string, value any, ttl time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = r.now().Add(ttl)
	}
	r.entries[key] = e
}

func (r *MemoryCache) delete(key string) {
	r.mu.Lock()
	delete(r.entries, key)
	r.mu.Unlock()
}

func (r *MemoryCache) GetRating(_ context.Context, serviceID string) (*models.RatingSummary, error) {
	v, ok := r.load(ratingKeyPrefix + serviceID)
	if !ok {
		return nil, nil
	}
	summary := v.(models.RatingSummary)
	return &summary, nil
}

func (r *MemoryCache) SetRating(_ context.Context, summary *models.RatingSummary, ttl time.Duration) error {
	r.store(ratingKeyPrefix+summary.ServiceID, *summary, ttl)
	return nil
}

func (r *MemoryCache) InvalidateRating(_ context.Context, serviceID string) error {
	r.delete(ratingKeyPrefix + serviceID)
	return nil
}

func (r *MemoryCache) GetConsultant(_ context.Context, id string) (*models.Consultant, error) {
	v, ok := r.load(consultantKeyPrefix + id)
	if !ok {
		return nil, nil
	}
	c := v.(models.Consultant)
	return &c, nil
}

func (r *MemoryCache) SetConsultant(_ context.Context, consultant *models.Consultant, ttl time.Duration) error {
	r.store(consultantKeyPrefix+consultant.ID, *consultant, ttl)
	return nil
}

func (r *MemoryCache) InvalidateConsultant(_ context.Context, id string) error {
	r.delete(consultantKeyPrefix + id)
	return nil
}

func (r *MemoryCache) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entry, ok := r.rateLimits[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		r.rateLimits[key] = entry
	}
	entry.count++
	return entry.count <= limit, nil
}
