package repository

import (
	"context"
	"testing"
	"time"

	"consultbook/internal/config"
	"consultbook/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	client := NewRedisClient(config.RedisConfig{Address: s.Addr()})
	t.Cleanup(func() { _ = Close(client) })
	require.NoError(t, Ping(context.Background(), client))

	return s, NewRedisCache(client)
}

func TestRedisCache_Rating(t *testing.T) {
	s, repo := setupRedis(t)
	ctx := context.Background()

	got, err := repo.GetRating(ctx, "svc-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, repo.SetRating(ctx, &models.RatingSummary{ServiceID: "svc-1", Average: 4.5, Count: 2}, time.Minute))
	got, err = repo.GetRating(ctx, "svc-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 4.5, got.Average)
	assert.Equal(t, int64(2), got.Count)

	require.NoError(t, repo.InvalidateRating(ctx, "svc-1"))
	got, err = repo.GetRating(ctx, "svc-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, repo.SetRating(ctx, &models.RatingSummary{ServiceID: "svc-2"}, time.Minute))
	s.FastForward(2 * time.Minute)
	got, err = repo.GetRating(ctx, "svc-2")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisCache_Consultant(t *testing.T) {
	_, repo := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, repo.SetConsultant(ctx, &models.Consultant{ID: "c-1", Name: "Dr. Lan"}, time.Hour))
	got, err := repo.GetConsultant(ctx, "c-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Dr. Lan", got.Name)

	require.NoError(t, repo.InvalidateConsultant(ctx, "c-1"))
	got, err = repo.GetConsultant(ctx, "c-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisCache_CorruptValue(t *testing.T) {
	s, repo := setupRedis(t)
	require.NoError(t, s.Set(ratingKeyPrefix+"svc-x", "not json"))

	_, err := repo.GetRating(context.Background(), "svc-x")
	assert.Error(t, err)
}

func TestRedisCache_CheckRateLimit(t *testing.T) {
	s, repo := setupRedis(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := repo.CheckRateLimit(ctx, "cust-1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, err := repo.CheckRateLimit(ctx, "cust-1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	s.FastForward(2 * time.Minute)
	allowed, err = repo.CheckRateLimit(ctx, "cust-1", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisCache_ServerDown(t *testing.T) {
	s, repo := setupRedis(t)
	s.Close()

	_, err := repo.GetRating(context.Background(), "svc-1")
	assert.Error(t, err)
	_, err = repo.CheckRateLimit(context.Background(), "cust-1", 1, time.Minute)
	assert.Error(t, err)
}

func TestRedisCache_NilClient(t *testing.T) {
	repo := NewRedisCache(nil)
	_, err := repo.GetConsultant(context.Background(), "c")
	assert.Error(t, err)
	assert.Error(t, repo.InvalidateRating(context.Background(), "s"))
}
