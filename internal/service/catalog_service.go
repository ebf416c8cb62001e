package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"consultbook/internal/domain"
	"consultbook/internal/metrics"
	"consultbook/internal/models"

	"github.com/rs/zerolog"
)

var ErrCatalogNotFound = errors.New("catalog entry not found")

type CatalogService struct {
	store  domain.CatalogStore
	cache  domain.ReadCache
	ttl    time.Duration
	logger *zerolog.Logger
}

func NewCatalogService(store domain.CatalogStore, cache domain.ReadCache, ttl time.Duration, logger *zerolog.Logger) *CatalogService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &CatalogService{store: store, cache: cache, ttl: ttl, logger: logger}
}

// Seed upserts the catalog file contents.
func (s *CatalogService) Seed(ctx context.Context, catalog *models.Catalog) error {
	for i := range catalog.Services {
		if err := s.store.UpsertService(ctx, &catalog.Services[i]); err != nil {
			return fmt.Errorf("seed service %s: %w", catalog.Services[i].ID, err)
		}
	}
	for i := range catalog.Consultants {
		c := &catalog.Consultants[i]
		if err := s.store.UpsertConsultant(ctx, c); err != nil {
			return fmt.Errorf("seed consultant %s: %w", c.ID, err)
		}
		if s.cache != nil {
			if err := s.cache.InvalidateConsultant(ctx, c.ID); err != nil {
				s.logger.Warn().Err(err).Str("consultant_id", c.ID).Msg("consultant cache invalidation failed")
			}
		}
	}
	s.logger.Info().Int("services", len(catalog.Services)).Int("consultants", len(catalog.Consultants)).Msg("Catalog seeded")
	return nil
}

func (s *CatalogService) GetService(ctx context.Context, id string) (*models.Service, error) {
	svc, err := s.store.GetService(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("service %s: %w", id, ErrCatalogNotFound)
	}
	return svc, err
}

func (s *CatalogService) ListServices(ctx context.Context) ([]*models.Service, error) {
	return s.store.ListServices(ctx)
}

// GetConsultant reads through the consultant cache.
func (s *CatalogService) GetConsultant(ctx context.Context, id string) (*models.Consultant, error) {
	if s.cache != nil {
		cached, err := s.cache.GetConsultant(ctx, id)
		if err != nil {
			s.logger.Warn().Err(err).Str("consultant_id", id).Msg("consultant cache read failed")
		}
		metrics.IncCache("consultant", cached != nil)
		if cached != nil {
			return cached, nil
		}
	}

	c, err := s.store.GetConsultant(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("consultant %s: %w", id, ErrCatalogNotFound)
	}
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetConsultant(ctx, c, s.ttl); err != nil {
			s.logger.Warn().Err(err).Str("consultant_id", id).Msg("consultant cache write failed")
		}
	}
	return c, nil
}
