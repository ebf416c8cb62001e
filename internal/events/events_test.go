package events

import (
	"errors"
	"testing"
	"time"

	"consultbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus(nil)

	var received []*Event
	bus.Subscribe(EventBookingCancelled, func(event *Event) error {
		received = append(received, event)
		return nil
	})
	bus.Subscribe(EventBookingCancelled, func(*Event) error {
		return errors.New("consumer down")
	})

	consultant := "cons-1"
	b := &models.Booking{
		ID: "b1", CustomerID: "cust-1", ServiceID: "svc-1", ConsultantID: &consultant,
		Status: models.StatusCancelled, Date: "2030-01-01", Time: "10:00", UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, bus.PublishJSON(EventBookingCancelled, NewBookingPayload(b, "cust-1", models.RoleCustomer)))
	require.NoError(t, bus.PublishJSON(EventBookingConfirmed, map[string]string{"ignored": "yes"}))

	require.Len(t, received, 1)
	assert.NotEmpty(t, received[0].ID)
	assert.False(t, received[0].CreatedAt.IsZero())

	payload, err := received[0].Decode()
	require.NoError(t, err)
	assert.Equal(t, "b1", payload.BookingID)
	assert.Equal(t, "cons-1", payload.ConsultantID)
	assert.Equal(t, models.RoleCustomer, payload.ActorRole)
	assert.Equal(t, models.StatusCancelled, payload.Status)
}

func TestEventBus_SubscribeAll(t *testing.T) {
	bus := NewEventBus(nil)
	seen := map[string]int{}
	bus.SubscribeAll(func(e *Event) error {
		seen[e.Type]++
		return nil
	})

	for _, typ := range AllEventTypes {
		require.NoError(t, bus.PublishJSON(typ, struct{}{}))
	}
	assert.Len(t, seen, len(AllEventTypes))
}

func TestEventBus_NilAndBadPayload(t *testing.T) {
	var nilBus *EventBus
	assert.NoError(t, nilBus.PublishJSON(EventBookingCreated, struct{}{}))

	bus := NewEventBus(nil)
	assert.Error(t, bus.PublishJSON(EventBookingCreated, make(chan int)))
}

func TestStatusEventType(t *testing.T) {
	assert.Equal(t, EventBookingConfirmed, StatusEventType(models.StatusConfirmed))
	assert.Equal(t, EventBookingCompleted, StatusEventType(models.StatusCompleted))
	assert.Equal(t, EventBookingCancelled, StatusEventType(models.StatusCancelled))
}
