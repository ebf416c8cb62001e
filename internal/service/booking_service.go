package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"consultbook/internal/config"
	"consultbook/internal/domain"
	"consultbook/internal/events"
	"consultbook/internal/lifecycle"
	"consultbook/internal/models"

	"github.com/rs/zerolog"
)

// maxAttempts bounds how often a mutation re-reads the booking after
// losing a conditional write.
const maxAttempts = 3

type BookingService struct {
	bookings domain.BookingStore
	catalog  *CatalogService
	cache    domain.ReadCache
	eventBus domain.EventPublisher
	cfg      config.BookingConfig
	loc      *time.Location
	now      func() time.Time
	logger   *zerolog.Logger
}

func NewBookingService(
	bookings domain.BookingStore,
	catalog *CatalogService,
	cache domain.ReadCache,
	eventBus domain.EventPublisher,
	cfg config.BookingConfig,
	loc *time.Location,
	logger *zerolog.Logger,
) *BookingService {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &BookingService{
		bookings: bookings,
		catalog:  catalog,
		cache:    cache,
		eventBus: eventBus,
		cfg:      cfg,
		loc:      loc,
		now:      time.Now,
		logger:   logger,
	}
}

// CreateBookingInput is a request for a new Pending booking.
type CreateBookingInput struct {
	CustomerID   string
	ServiceID    string
	ConsultantID *string
	Date         string
	Time         string
}

// BookingPage is one page of a customer's booking history.
type BookingPage struct {
	Items []*models.BookingView `json:"items"`
	Total int                   `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
}

func (s *BookingService) CreateBooking(ctx context.Context, actor models.Actor, in CreateBookingInput) (*models.BookingView, error) {
	switch {
	case actor.Role == models.RoleCustomer:
		if in.CustomerID != "" && in.CustomerID != actor.ID {
			return nil, fmt.Errorf("%w: customers book for themselves", lifecycle.ErrUnauthorized)
		}
		in.CustomerID = actor.ID
	case actor.Role.IsStaff():
		if in.CustomerID == "" {
			return nil, fmt.Errorf("%w: customer_id is required", ErrInvalidInput)
		}
	default:
		return nil, fmt.Errorf("%w: %s may not create bookings", lifecycle.ErrUnauthorized, actor.Role)
	}

	if err := lifecycle.ValidateFutureSlot(in.Date, in.Time, s.now().In(s.loc)); err != nil {
		return nil, err
	}
	svc, err := s.catalog.GetService(ctx, in.ServiceID)
	if errors.Is(err, ErrCatalogNotFound) || (err == nil && !svc.IsActive) {
		return nil, fmt.Errorf("%w: unknown service %q", ErrInvalidInput, in.ServiceID)
	}
	if err != nil {
		return nil, err
	}
	if in.ConsultantID != nil {
		if _, err := s.catalog.GetConsultant(ctx, *in.ConsultantID); err != nil {
			if errors.Is(err, ErrCatalogNotFound) {
				return nil, fmt.Errorf("%w: unknown consultant %q", ErrInvalidInput, *in.ConsultantID)
			}
			return nil, err
		}
	}
	if err := s.checkRate(ctx, actor); err != nil {
		return nil, err
	}

	booking := &models.Booking{
		CustomerID:   in.CustomerID,
		ServiceID:    in.ServiceID,
		ConsultantID: in.ConsultantID,
		Date:         strings.TrimSpace(in.Date),
		Time:         strings.TrimSpace(in.Time),
	}
	if _, err := s.bookings.CreateBooking(ctx, booking); err != nil {
		record("create", err)
		return nil, err
	}
	record("create", nil)

	s.logger.Info().Str("booking_id", booking.ID).Str("customer_id", booking.CustomerID).Msg("booking created")
	s.publish(events.EventBookingCreated, booking, actor)
	return s.view(ctx, booking, nil), nil
}

func (s *BookingService) GetBooking(ctx context.Context, actor models.Actor, id string) (*models.BookingView, error) {
	b, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return nil, storeErr(err, id)
	}
	if err := lifecycle.CheckOwnership(b, actor.ID, actor.Role); err != nil {
		return nil, err
	}
	return s.view(ctx, b, nil), nil
}

// ListBookings returns a customer's bookings, newest first, filtered and paginated.
func (s *BookingService) ListBookings(ctx context.Context, actor models.Actor, customerID string, filter domain.BookingFilter) (*BookingPage, error) {
	switch {
	case actor.Role == models.RoleCustomer:
		if customerID == "" {
			customerID = actor.ID
		}
		if customerID != actor.ID {
			return nil, fmt.Errorf("%w: customers see only their own bookings", lifecycle.ErrUnauthorized)
		}
	case actor.Role.IsStaff():
		if customerID == "" {
			return nil, fmt.Errorf("%w: customer is required", ErrInvalidInput)
		}
	default:
		return nil, fmt.Errorf("%w: %s may not list customer bookings", lifecycle.ErrUnauthorized, actor.Role)
	}

	all, err := s.bookings.ListBookingsByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	names := map[string]string{}
	views := make([]*models.BookingView, 0, len(all))
	query := strings.ToLower(strings.TrimSpace(filter.Query))
	for _, b := range all {
		if filter.Status != nil && b.Status != *filter.Status {
			continue
		}
		v := s.view(ctx, b, names)
		if query != "" &&
			!strings.Contains(strings.ToLower(v.ServiceName), query) &&
			!strings.Contains(strings.ToLower(v.ConsultantName), query) {
			continue
		}
		views = append(views, v)
	}

	page, limit := normalizePage(filter.Page, filter.Limit)
	start := (page - 1) * limit
	end := start + limit
	if start > len(views) {
		start = len(views)
	}
	if end > len(views) {
		end = len(views)
	}

	return &BookingPage{Items: views[start:end], Total: len(views), Page: page, Limit: limit}, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = models.DefaultPageSize
	}
	if limit > models.MaxPageSize {
		limit = models.MaxPageSize
	}
	return page, limit
}

// ListByDateRange serves staff exports.
func (s *BookingService) ListByDateRange(ctx context.Context, actor models.Actor, from, to string) ([]*models.BookingView, error) {
	if !actor.Role.IsStaff() {
		return nil, fmt.Errorf("%w: exports are staff only", lifecycle.ErrUnauthorized)
	}
	if _, err := lifecycle.ParseSlot(from, "00:00", s.loc); err != nil {
		return nil, fmt.Errorf("%w: from: %w", ErrInvalidInput, err)
	}
	if _, err := lifecycle.ParseSlot(to, "00:00", s.loc); err != nil {
		return nil, fmt.Errorf("%w: to: %w", ErrInvalidInput, err)
	}
	if to < from {
		return nil, fmt.Errorf("%w: to is before from", ErrInvalidInput)
	}

	list, err := s.bookings.ListBookingsByDateRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	names := map[string]string{}
	views := make([]*models.BookingView, 0, len(list))
	for _, b := range list {
		views = append(views, s.view(ctx, b, names))
	}
	return views, nil
}

func (s *BookingService) StatusHistory(ctx context.Context, actor models.Actor, id string) ([]*models.StatusEvent, error) {
	b, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return nil, storeErr(err, id)
	}
	if err := lifecycle.CheckOwnership(b, actor.ID, actor.Role); err != nil {
		return nil, err
	}
	return s.bookings.ListStatusEvents(ctx, id)
}

func (s *BookingService) CancelBooking(ctx context.Context, actor models.Actor, id string) (*models.BookingView, error) {
	return s.transition(ctx, actor, id, models.StatusCancelled, "cancel")
}

func (s *BookingService) ConfirmBooking(ctx context.Context, actor models.Actor, id string) (*models.BookingView, error) {
	return s.transition(ctx, actor, id, models.StatusConfirmed, "confirm")
}

func (s *BookingService) CompleteBooking(ctx context.Context, actor models.Actor, id string) (*models.BookingView, error) {
	return s.transition(ctx, actor, id, models.StatusCompleted, "complete")
}

// transition runs the guard against the stored booking and applies the
// change with a conditional write. A lost race re-reads the booking so the
// caller gets the rejection for the state that actually won.
func (s *BookingService) transition(ctx context.Context, actor models.Actor, id string, target models.Status, action string) (*models.BookingView, error) {
	if err := s.checkRate(ctx, actor); err != nil {
		return nil, err
	}

	updated, from, err := s.applyTransition(ctx, actor, id, target)
	record(action, err)
	if err != nil {
		s.logger.Debug().Err(err).Str("booking_id", id).Str("action", action).Msg("transition rejected")
		return nil, err
	}

	if err := s.bookings.RecordStatusEvent(ctx, &models.StatusEvent{
		BookingID:  id,
		FromStatus: from,
		ToStatus:   target,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
	}); err != nil {
		s.logger.Error().Err(err).Str("booking_id", id).Msg("status event not recorded")
	}

	s.logger.Info().Str("booking_id", id).Str("from", string(from)).Str("to", string(target)).
		Str("actor_role", string(actor.Role)).Msg("booking status changed")
	s.publish(events.StatusEventType(target), updated, actor)
	return s.view(ctx, updated, nil), nil
}

func (s *BookingService) applyTransition(ctx context.Context, actor models.Actor, id string, target models.Status) (*models.Booking, models.Status, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		current, err := s.bookings.GetBooking(ctx, id)
		if err != nil {
			return nil, "", storeErr(err, id)
		}
		if err := lifecycle.CheckOwnership(current, actor.ID, actor.Role); err != nil {
			return nil, "", err
		}
		if err := lifecycle.CheckTransition(current.Status, target, actor.Role); err != nil {
			return nil, "", err
		}

		updated, err := s.bookings.UpdateStatus(ctx, id, current.Status, target)
		if errors.Is(err, domain.ErrPreconditionFailed) {
			continue
		}
		if err != nil {
			return nil, "", storeErr(err, id)
		}
		return updated, current.Status, nil
	}
	return nil, "", fmt.Errorf("%w: booking %s keeps changing", lifecycle.ErrIllegalTransition, id)
}

// RescheduleBooking applies the one allowed date/time change.
func (s *BookingService) RescheduleBooking(ctx context.Context, actor models.Actor, id, date, clock string) (*models.BookingView, error) {
	if err := lifecycle.ValidateFutureSlot(date, clock, s.now().In(s.loc)); err != nil {
		return nil, err
	}
	if err := s.checkRate(ctx, actor); err != nil {
		return nil, err
	}

	updated, err := s.applyReschedule(ctx, actor, id, strings.TrimSpace(date), strings.TrimSpace(clock))
	record("reschedule", err)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("booking_id", id).Str("date", updated.Date).Str("time", updated.Time).Msg("booking rescheduled")
	s.publish(events.EventBookingRescheduled, updated, actor)
	return s.view(ctx, updated, nil), nil
}

func (s *BookingService) applyReschedule(ctx context.Context, actor models.Actor, id, date, clock string) (*models.Booking, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		current, err := s.bookings.GetBooking(ctx, id)
		if err != nil {
			return nil, storeErr(err, id)
		}
		if err := lifecycle.CheckOwnership(current, actor.ID, actor.Role); err != nil {
			return nil, err
		}
		if err := lifecycle.CheckReschedule(current, actor.Role); err != nil {
			return nil, err
		}

		updated, err := s.bookings.UpdateSchedule(ctx, id, date, clock)
		if errors.Is(err, domain.ErrPreconditionFailed) {
			continue
		}
		if err != nil {
			return nil, storeErr(err, id)
		}
		return updated, nil
	}
	return nil, fmt.Errorf("%w: booking %s keeps changing", lifecycle.ErrBookingNotEditable, id)
}

// checkRate limits how many mutations one customer may issue per window.
// A cache failure lets the request through.
func (s *BookingService) checkRate(ctx context.Context, actor models.Actor) error {
	if s.cache == nil || actor.Role != models.RoleCustomer || s.cfg.CustomerRateLimit <= 0 {
		return nil
	}
	window := time.Duration(s.cfg.CustomerRateWindow) * time.Second
	allowed, err := s.cache.CheckRateLimit(ctx, "customer:"+actor.ID, s.cfg.CustomerRateLimit, window)
	if err != nil {
		s.logger.Warn().Err(err).Str("customer_id", actor.ID).Msg("rate limit check failed")
		return nil
	}
	if !allowed {
		return ErrRateLimited
	}
	return nil
}

// view joins catalog names onto the booking. names memoizes service names
// across a list call and may be nil.
func (s *BookingService) view(ctx context.Context, b *models.Booking, names map[string]string) *models.BookingView {
	v := &models.BookingView{Booking: *b, CancellationNotice: s.cfg.CancellationNotice}

	if name, ok := names[b.ServiceID]; ok {
		v.ServiceName = name
	} else if svc, err := s.catalog.GetService(ctx, b.ServiceID); err == nil {
		v.ServiceName = svc.Name
		if names != nil {
			names[b.ServiceID] = svc.Name
		}
	}

	if b.ConsultantID != nil {
		if c, err := s.catalog.GetConsultant(ctx, *b.ConsultantID); err == nil {
			v.ConsultantName = c.Name
		}
	}
	return v
}

func (s *BookingService) publish(eventType string, b *models.Booking, actor models.Actor) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, events.NewBookingPayload(b, actor.ID, actor.Role)); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("booking_id", b.ID).Msg("publish event error")
	}
}
