package events

import (
	"encoding/json"
	"sync"
	"time"

	"consultbook/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	EventBookingCreated     = "booking_created"
	EventBookingConfirmed   = "booking_confirmed"
	EventBookingCompleted   = "booking_completed"
	EventBookingCancelled   = "booking_cancelled"
	EventBookingRescheduled = "booking_rescheduled"
	EventFeedbackSubmitted  = "feedback_submitted"
)

// AllEventTypes lists every lifecycle event the services publish.
var AllEventTypes = []string{
	EventBookingCreated,
	EventBookingConfirmed,
	EventBookingCompleted,
	EventBookingCancelled,
	EventBookingRescheduled,
	EventFeedbackSubmitted,
}

// StatusEventType maps a target status onto its event type.
func StatusEventType(s models.Status) string {
	switch s {
	case models.StatusConfirmed:
		return EventBookingConfirmed
	case models.StatusCompleted:
		return EventBookingCompleted
	case models.StatusCancelled:
		return EventBookingCancelled
	default:
		return EventBookingCreated
	}
}

// BookingEventPayload is the booking snapshot sent to event consumers.
type BookingEventPayload struct {
	BookingID    string        `json:"booking_id"`
	CustomerID   string        `json:"customer_id"`
	ServiceID    string        `json:"service_id"`
	ConsultantID string        `json:"consultant_id,omitempty"`
	Status       models.Status `json:"status"`
	Date         string        `json:"date"`
	Time         string        `json:"time"`
	ActorID      string        `json:"actor_id,omitempty"`
	ActorRole    models.Role   `json:"actor_role,omitempty"`
	OccurredAt   time.Time     `json:"occurred_at"`
}

// NewBookingPayload builds the payload for a booking changed by an actor.
func NewBookingPayload(b *models.Booking, actorID string, role models.Role) BookingEventPayload {
	p := BookingEventPayload{
		BookingID:  b.ID,
		CustomerID: b.CustomerID,
		ServiceID:  b.ServiceID,
		Status:     b.Status,
		Date:       b.Date,
		Time:       b.Time,
		ActorID:    actorID,
		ActorRole:  role,
		OccurredAt: b.UpdatedAt,
	}
	if b.ConsultantID != nil {
		p.ConsultantID = *b.ConsultantID
	}
	return p
}

// Event represents a lightweight domain event.
type Event struct {
	ID        string
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the booking payload.
func (e *Event) Decode() (BookingEventPayload, error) {
	var p BookingEventPayload
	err := json.Unmarshal(e.Payload, &p)
	return p, err
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	logger      zerolog.Logger
}

func NewEventBus(logger *zerolog.Logger) *EventBus {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "events").Logger()
	}
	return &EventBus{subscribers: make(map[string][]EventHandler), logger: l}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// SubscribeAll registers the handler for every lifecycle event type.
func (b *EventBus) SubscribeAll(handler EventHandler) {
	for _, t := range AllEventTypes {
		b.Subscribe(t, handler)
	}
}

// Publish runs the subscribers synchronously. Handler errors are logged,
// never returned: a failing consumer must not fail the booking write.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	for _, handler := range handlers {
		if err := handler(event); err != nil {
			b.logger.Warn().Err(err).Str("event_type", event.Type).Str("event_id", event.ID).Msg("event handler failed")
		}
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw})
	return nil
}
