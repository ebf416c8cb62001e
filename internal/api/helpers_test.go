package api

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"consultbook/internal/auth"
	"consultbook/internal/config"
	"consultbook/internal/database"
	"consultbook/internal/events"
	"consultbook/internal/models"
	"consultbook/internal/repository"
	"consultbook/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var (
	testCustomer   = models.Actor{ID: "cust-1", Role: models.RoleCustomer}
	testStranger   = models.Actor{ID: "cust-2", Role: models.RoleCustomer}
	testStaff      = models.Actor{ID: "staff-1", Role: models.RoleStaff}
	testConsultant = models.Actor{ID: "cons-1", Role: models.RoleConsultant}
)

type testEnv struct {
	db     *database.DB
	svc    Services
	issuer *auth.Issuer
	cfg    config.APIConfig
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.Nop()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "api.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cache := repository.NewMemoryCache()
	bus := events.NewEventBus(&logger)

	catalog := service.NewCatalogService(db, cache, time.Minute, &logger)
	require.NoError(t, catalog.Seed(context.Background(), &models.Catalog{
		Services:    []models.Service{{ID: "svc-facial", Name: "Hydrating Facial", IsActive: true}},
		Consultants: []models.Consultant{{ID: "cons-1", Name: "Linh Tran", IsActive: true}},
	}))

	bookingCfg := config.BookingConfig{
		CancellationNotice: models.DefaultCancellationNotice,
		CustomerRateLimit:  1000,
		CustomerRateWindow: 60,
	}

	return &testEnv{
		db: db,
		svc: Services{
			Bookings:  service.NewBookingService(db, catalog, cache, bus, bookingCfg, time.UTC, &logger),
			Feedbacks: service.NewFeedbackService(db, db, cache, bus, time.Minute, &logger),
			Catalog:   catalog,
			Store:     db,
		},
		issuer: auth.NewIssuer("test-secret", "consultbook", time.Hour),
		cfg: config.APIConfig{
			RequestTimeout: 5 * time.Second,
		},
	}
}

func (e *testEnv) token(t *testing.T, actor models.Actor) string {
	t.Helper()
	tok, _, err := e.issuer.Issue(actor)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) seedBooking(t *testing.T) *models.Booking {
	t.Helper()
	consultant := "cons-1"
	b := &models.Booking{
		CustomerID:   testCustomer.ID,
		ServiceID:    "svc-facial",
		ConsultantID: &consultant,
		Date:         "2030-06-01",
		Time:         "10:00",
	}
	_, err := e.db.CreateBooking(context.Background(), b)
	require.NoError(t, err)
	return b
}

func (e *testEnv) forceStatus(t *testing.T, id string, status models.Status) {
	t.Helper()
	_, err := e.db.Exec(`UPDATE bookings SET status = ? WHERE id = ?`, status, id)
	require.NoError(t, err)
}
