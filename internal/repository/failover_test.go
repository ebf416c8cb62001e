package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"consultbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCache struct {
	mock.Mock
}

func (m *mockCache) GetRating(ctx context.Context, serviceID string) (*models.RatingSummary, error) {
	args := m.Called(ctx, serviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RatingSummary), args.Error(1)
}

func (m *mockCache) SetRating(ctx context.Context, summary *models.RatingSummary, ttl time.Duration) error {
	return m.Called(ctx, summary, ttl).Error(0)
}

func (m *mockCache) InvalidateRating(ctx context.Context, serviceID string) error {
	return m.Called(ctx, serviceID).Error(0)
}

func (m *mockCache) GetConsultant(ctx context.Context, id string) (*models.Consultant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Consultant), args.Error(1)
}

func (m *mockCache) SetConsultant(ctx context.Context, consultant *models.Consultant, ttl time.Duration) error {
	return m.Called(ctx, consultant, ttl).Error(0)
}

func (m *mockCache) InvalidateConsultant(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockCache) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func TestFailoverCache(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	t.Run("PrimaryHealthy", func(t *testing.T) {
		primary := new(mockCache)
		fallback := NewMemoryCache()
		repo := NewFailoverCache(primary, fallback, &logger)

		primary.On("GetRating", ctx, "s").Return(&models.RatingSummary{ServiceID: "s", Count: 7}, nil).Once()
		got, err := repo.GetRating(ctx, "s")
		require.NoError(t, err)
		assert.Equal(t, int64(7), got.Count)
		primary.AssertExpectations(t)
	})

	t.Run("FallsBackAndRecovers", func(t *testing.T) {
		primary := new(mockCache)
		fallback := NewMemoryCache()
		repo := NewFailoverCache(primary, fallback, &logger)
		now := time.Now()
		repo.now = func() time.Time { return now }

		primary.On("CheckRateLimit", ctx, "cust", 5, time.Minute).Return(false, errors.New("redis down")).Once()
		allowed, err := repo.CheckRateLimit(ctx, "cust", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.True(t, repo.isDown.Load())

		// пока окно восстановления не прошло, primary не трогаем
		allowed, err = repo.CheckRateLimit(ctx, "cust", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)

		now = now.Add(2 * time.Minute)
		primary.On("CheckRateLimit", ctx, "cust", 5, time.Minute).Return(true, nil).Once()
		allowed, err = repo.CheckRateLimit(ctx, "cust", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.False(t, repo.isDown.Load())

		primary.AssertExpectations(t)
	})

	t.Run("InvalidateHitsBoth", func(t *testing.T) {
		primary := new(mockCache)
		fallback := NewMemoryCache()
		repo := NewFailoverCache(primary, fallback, &logger)

		require.NoError(t, fallback.SetRating(ctx, &models.RatingSummary{ServiceID: "s"}, time.Hour))
		primary.On("InvalidateRating", ctx, "s").Return(nil).Once()

		require.NoError(t, repo.InvalidateRating(ctx, "s"))
		got, _ := fallback.GetRating(ctx, "s")
		assert.Nil(t, got)
		primary.AssertExpectations(t)
	})

	t.Run("ConsultantFallback", func(t *testing.T) {
		primary := new(mockCache)
		fallback := NewMemoryCache()
		repo := NewFailoverCache(primary, fallback, &logger)

		c := &models.Consultant{ID: "c-1"}
		primary.On("SetConsultant", ctx, c, time.Hour).Return(errors.New("down")).Once()
		require.NoError(t, repo.SetConsultant(ctx, c, time.Hour))

		got, err := repo.GetConsultant(ctx, "c-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		primary.AssertExpectations(t)
	})
}
