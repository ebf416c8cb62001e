package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Booking struct {
	ID                string    `json:"id" bson:"_id"`
	CustomerID        string    `json:"customer_id" bson:"customer_id"`
	ServiceID         string    `json:"service_id" bson:"service_id"`
	ConsultantID      *string   `json:"consultant_id" bson:"consultant_id,omitempty"`
	Date              string    `json:"date" bson:"date"` // YYYY-MM-DD
	Time              string    `json:"time" bson:"time"` // HH:MM
	Status            Status    `json:"status" bson:"status"`
	RescheduleUsed    bool      `json:"reschedule_used" bson:"reschedule_used"`
	CheckinCode       string    `json:"checkin_code" bson:"checkin_code"`
	FeedbackSubmitted bool      `json:"feedback_submitted" bson:"feedback_submitted"`
	CreatedAt         time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" bson:"updated_at"`
	Version           int64     `json:"version" bson:"version"`
}

// IsTerminal reports whether no further status change is allowed.
func (b *Booking) IsTerminal() bool {
	return b.Status == StatusCompleted || b.Status == StatusCancelled
}

// AssignedTo reports whether the booking is assigned to the consultant.
func (b *Booking) AssignedTo(consultantID string) bool {
	return b.ConsultantID != nil && *b.ConsultantID == consultantID
}

// Prepare fills the fields every new booking starts with.
func (b *Booking) Prepare(now time.Time) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CheckinCode == "" {
		b.CheckinCode = NewCheckinCode()
	}
	b.Status = StatusPending
	b.RescheduleUsed = false
	b.FeedbackSubmitted = false
	b.CreatedAt = now
	b.UpdatedAt = now
	b.Version = 1
}

// NewCheckinCode returns an 8 character code shown at the front desk.
func NewCheckinCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:8])
}

// BookingView is a booking joined with catalog names for display.
type BookingView struct {
	Booking
	ServiceName        string `json:"service_name"`
	ConsultantName     string `json:"consultant_name,omitempty"`
	CancellationNotice string `json:"cancellation_notice,omitempty"`
}

// StatusEvent is one applied transition in the audit trail.
type StatusEvent struct {
	ID         int64     `json:"id" bson:"_id"`
	BookingID  string    `json:"booking_id" bson:"booking_id"`
	FromStatus Status    `json:"from_status" bson:"from_status"`
	ToStatus   Status    `json:"to_status" bson:"to_status"`
	ActorID    string    `json:"actor_id" bson:"actor_id"`
	ActorRole  Role      `json:"actor_role" bson:"actor_role"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}
