package domain

import (
	"context"
	"errors"
	"time"

	"consultbook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var (
	// ErrNotFound means the booking (or catalog entry) does not exist.
	ErrNotFound = errors.New("not found")
	// ErrPreconditionFailed means the stored record no longer matches the
	// state the caller expected; nothing was written.
	ErrPreconditionFailed = errors.New("precondition failed")
	// ErrUnavailable wraps driver and network failures. Callers may retry.
	ErrUnavailable = errors.New("storage unavailable")
	// ErrDuplicate is returned on unique key violations.
	ErrDuplicate = errors.New("duplicate record")
)

// BookingFilter narrows a customer's booking history.
type BookingFilter struct {
	Status *models.Status
	Query  string
	Page   int
	Limit  int
}

// BookingStore persists bookings. Every mutation is a conditional write
// against the expected stored state.
type BookingStore interface {
	CreateBooking(ctx context.Context, booking *models.Booking) (string, error)
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	ListBookingsByCustomer(ctx context.Context, customerID string) ([]*models.Booking, error)
	ListBookingsByDateRange(ctx context.Context, from, to string) ([]*models.Booking, error)
	UpdateStatus(ctx context.Context, id string, from, to models.Status) (*models.Booking, error)
	UpdateSchedule(ctx context.Context, id, date, clock string) (*models.Booking, error)
	SetFeedbackSubmitted(ctx context.Context, id string) (*models.Booking, error)
	RecordStatusEvent(ctx context.Context, event *models.StatusEvent) error
	ListStatusEvents(ctx context.Context, bookingID string) ([]*models.StatusEvent, error)
	Ping(ctx context.Context) error
}

type FeedbackStore interface {
	// CreateFeedback flips the booking's feedback flag and stores the
	// feedback as one operation.
	CreateFeedback(ctx context.Context, feedback *models.Feedback) (*models.Booking, error)
	ListFeedbackByService(ctx context.Context, serviceID string) ([]*models.Feedback, error)
	ServiceRating(ctx context.Context, serviceID string) (*models.RatingSummary, error)
}

type CatalogStore interface {
	UpsertService(ctx context.Context, service *models.Service) error
	UpsertConsultant(ctx context.Context, consultant *models.Consultant) error
	GetService(ctx context.Context, id string) (*models.Service, error)
	GetConsultant(ctx context.Context, id string) (*models.Consultant, error)
	ListServices(ctx context.Context) ([]*models.Service, error)
}

// Store is everything a storage backend provides.
type Store interface {
	BookingStore
	FeedbackStore
	CatalogStore
	Close() error
}

// ReadCache holds derived read models. A miss is (nil, nil).
type ReadCache interface {
	GetRating(ctx context.Context, serviceID string) (*models.RatingSummary, error)
	SetRating(ctx context.Context, summary *models.RatingSummary, ttl time.Duration) error
	InvalidateRating(ctx context.Context, serviceID string) error
	GetConsultant(ctx context.Context, id string) (*models.Consultant, error)
	SetConsultant(ctx context.Context, consultant *models.Consultant, ttl time.Duration) error
	InvalidateConsultant(ctx context.Context, id string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type SheetsWriter interface {
	UpsertBooking(ctx context.Context, booking *models.Booking) error
	UpdateBookingStatus(ctx context.Context, bookingID string, status models.Status) error
}

// TaskStore is the durable outbox behind the sync worker.
type TaskStore interface {
	CreateSyncTask(ctx context.Context, task *models.SyncTask) error
	GetPendingSyncTasks(ctx context.Context, limit int) ([]models.SyncTask, error)
	UpdateSyncTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error
}
