package mongostore

import (
	"context"
	"errors"
	"time"

	"consultbook/internal/domain"
	"consultbook/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func (s *Store) bookings() *mongo.Collection {
	return s.db.Collection(collBookings)
}

func (s *Store) CreateBooking(ctx context.Context, booking *models.Booking) (string, error) {
	booking.Prepare(time.Now().UTC().Truncate(time.Millisecond))
	if _, err := s.bookings().InsertOne(ctx, booking); err != nil {
		return "", classify("create booking", err)
	}
	return booking.ID, nil
}

func (s *Store) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	var b models.Booking
	if err := s.bookings().FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&b); err != nil {
		return nil, classify("get booking", err)
	}
	return &b, nil
}

func (s *Store) ListBookingsByCustomer(ctx context.Context, customerID string) ([]*models.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	return s.findBookings(ctx, "list bookings by customer", bson.D{{Key: "customer_id", Value: customerID}}, opts)
}

func (s *Store) ListBookingsByDateRange(ctx context.Context, from, to string) ([]*models.Booking, error) {
	filter := bson.D{{Key: "date", Value: bson.D{{Key: "$gte", Value: from}, {Key: "$lte", Value: to}}}}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}})
	return s.findBookings(ctx, "list bookings by date range", filter, opts)
}

func (s *Store) findBookings(ctx context.Context, op string, filter bson.D, opts *options.FindOptionsBuilder) ([]*models.Booking, error) {
	cursor, err := s.bookings().Find(ctx, filter, opts)
	if err != nil {
		return nil, classify(op, err)
	}
	bookings := make([]*models.Booking, 0)
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, classify(op, err)
	}
	return bookings, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id string, from, to models.Status) (*models.Booking, error) {
	return s.conditionalUpdate(ctx, "update status", statusFilter(id, from), bson.D{{Key: "status", Value: to}})
}

func (s *Store) UpdateSchedule(ctx context.Context, id, date, clock string) (*models.Booking, error) {
	set := bson.D{
		{Key: "date", Value: date},
		{Key: "time", Value: clock},
		{Key: "reschedule_used", Value: true},
	}
	return s.conditionalUpdate(ctx, "update schedule", rescheduleFilter(id), set)
}

func (s *Store) SetFeedbackSubmitted(ctx context.Context, id string) (*models.Booking, error) {
	return s.conditionalUpdate(ctx, "set feedback submitted", feedbackFilter(id), bson.D{{Key: "feedback_submitted", Value: true}})
}

func (s *Store) conditionalUpdate(ctx context.Context, op string, filter, set bson.D) (*models.Booking, error) {
	update := bson.D{
		{Key: "$set", Value: append(set, bson.E{Key: "updated_at", Value: time.Now().UTC().Truncate(time.Millisecond)})},
		{Key: "$inc", Value: bson.D{{Key: "version", Value: 1}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var b models.Booking
	err := s.bookings().FindOneAndUpdate(ctx, filter, update, opts).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, s.missOrConflict(ctx, op, idOf(filter))
	}
	if err != nil {
		return nil, classify(op, err)
	}
	return &b, nil
}

func (s *Store) missOrConflict(ctx context.Context, op, id string) error {
	n, err := s.bookings().CountDocuments(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return classify(op, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return domain.ErrPreconditionFailed
}

func statusFilter(id string, from models.Status) bson.D {
	return bson.D{{Key: "_id", Value: id}, {Key: "status", Value: from}}
}

func rescheduleFilter(id string) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "status", Value: models.StatusPending},
		{Key: "reschedule_used", Value: false},
	}
}

func feedbackFilter(id string) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "status", Value: models.StatusCompleted},
		{Key: "feedback_submitted", Value: false},
	}
}

func idOf(filter bson.D) string {
	for _, e := range filter {
		if e.Key == "_id" {
			if id, ok := e.Value.(string); ok {
				return id
			}
		}
	}
	return ""
}

func (s *Store) RecordStatusEvent(ctx context.Context, event *models.StatusEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if event.ID == 0 {
		event.ID = event.CreatedAt.UnixNano()
	}
	_, err := s.db.Collection(collStatusEvents).InsertOne(ctx, event)
	return classify("record status event", err)
}

func (s *Store) ListStatusEvents(ctx context.Context, bookingID string) ([]*models.StatusEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := s.db.Collection(collStatusEvents).Find(ctx, bson.D{{Key: "booking_id", Value: bookingID}}, opts)
	if err != nil {
		return nil, classify("list status events", err)
	}
	events := make([]*models.StatusEvent, 0)
	if err := cursor.All(ctx, &events); err != nil {
		return nil, classify("list status events", err)
	}
	return events, nil
}
