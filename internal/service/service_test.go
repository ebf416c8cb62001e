package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"consultbook/internal/config"
	"consultbook/internal/database"
	"consultbook/internal/events"
	"consultbook/internal/models"
	"consultbook/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var (
	customer   = models.Actor{ID: "cust-1", Role: models.RoleCustomer}
	stranger   = models.Actor{ID: "cust-2", Role: models.RoleCustomer}
	staff      = models.Actor{ID: "staff-1", Role: models.RoleStaff}
	consultant = models.Actor{ID: "cons-1", Role: models.RoleConsultant}
)

type fixture struct {
	db        *database.DB
	cache     *repository.MemoryCache
	bus       *events.EventBus
	catalog   *CatalogService
	bookings  *BookingService
	feedbacks *FeedbackService

	mu        sync.Mutex
	published []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zerolog.Nop()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "service.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{db: db, cache: repository.NewMemoryCache(), bus: events.NewEventBus(&logger)}
	f.bus.SubscribeAll(func(e *events.Event) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.published = append(f.published, e.Type)
		return nil
	})

	f.catalog = NewCatalogService(db, f.cache, time.Minute, &logger)
	require.NoError(t, f.catalog.Seed(context.Background(), &models.Catalog{
		Services: []models.Service{
			{ID: "svc-facial", Name: "Hydrating Facial", Price: 50000, DurationMinutes: 60, IsActive: true},
			{ID: "svc-peel", Name: "Chemical Peel", Price: 80000, DurationMinutes: 45, IsActive: true},
			{ID: "svc-retired", Name: "Old Treatment", IsActive: false},
		},
		Consultants: []models.Consultant{
			{ID: "cons-1", Name: "Linh Tran", Specialty: "acne", IsActive: true},
		},
	}))

	cfg := config.BookingConfig{
		CancellationNotice: models.DefaultCancellationNotice,
		CustomerRateLimit:  models.CustomerRateLimit,
		CustomerRateWindow: models.CustomerRateWindow,
	}
	f.bookings = NewBookingService(db, f.catalog, f.cache, f.bus, cfg, time.UTC, &logger)
	f.bookings.now = func() time.Time { return time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC) }
	f.feedbacks = NewFeedbackService(db, db, f.cache, f.bus, time.Minute, &logger)
	return f
}

func (f *fixture) events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.published...)
}

func (f *fixture) book(t *testing.T, actor models.Actor, serviceID string) *models.BookingView {
	t.Helper()
	cons := "cons-1"
	v, err := f.bookings.CreateBooking(context.Background(), actor, CreateBookingInput{
		ServiceID:    serviceID,
		ConsultantID: &cons,
		Date:         "2030-06-01",
		Time:         "10:00",
	})
	require.NoError(t, err)
	return v
}

// completed returns a booking that went Pending -> Confirmed -> Completed.
func (f *fixture) completed(t *testing.T) *models.BookingView {
	t.Helper()
	ctx := context.Background()
	v := f.book(t, customer, "svc-facial")
	_, err := f.bookings.ConfirmBooking(ctx, staff, v.ID)
	require.NoError(t, err)
	done, err := f.bookings.CompleteBooking(ctx, consultant, v.ID)
	require.NoError(t, err)
	return done
}
