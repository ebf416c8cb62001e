package events

import (
	"context"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockChannel struct {
	mock.Mock
}

func (m *mockChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return m.Called(exchange, key, mandatory, immediate, msg).Error(0)
}

func (m *mockChannel) Close() error {
	return m.Called().Error(0)
}

func TestAMQPForwarder_Forward(t *testing.T) {
	ch := new(mockChannel)
	f := newAMQPForwarder(ch, "consultbook.bookings", nil)

	event := &Event{ID: "evt-1", Type: EventFeedbackSubmitted, Payload: []byte(`{"booking_id":"b1"}`), CreatedAt: time.Now()}
	ch.On("PublishWithContext", "consultbook.bookings", EventFeedbackSubmitted, false, false,
		mock.MatchedBy(func(msg amqp.Publishing) bool {
			return msg.MessageId == "evt-1" &&
				msg.DeliveryMode == amqp.Persistent &&
				msg.ContentType == "application/json" &&
				string(msg.Body) == `{"booking_id":"b1"}`
		})).Return(nil).Once()

	require.NoError(t, f.Forward(event))
	ch.AssertExpectations(t)
}

func TestAMQPForwarder_ErrorAndBus(t *testing.T) {
	ch := new(mockChannel)
	f := newAMQPForwarder(ch, "x", nil)
	ch.On("PublishWithContext", "x", EventBookingCreated, false, false, mock.Anything).Return(errors.New("channel closed"))

	err := f.Forward(&Event{ID: "e", Type: EventBookingCreated})
	assert.ErrorContains(t, err, "channel closed")

	// ошибка форвардера не ломает публикацию в шину
	bus := NewEventBus(nil)
	bus.SubscribeAll(f.Forward)
	assert.NoError(t, bus.PublishJSON(EventBookingCreated, struct{}{}))

	ch.On("Close").Return(nil).Once()
	assert.NoError(t, f.Close())
}
