package mongostore

import (
	"context"
	"errors"
	"time"

	"consultbook/internal/domain"
	"consultbook/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// CreateFeedback claims the booking's feedback slot with a conditional
// update, then inserts the feedback. If the insert fails the claim is
// released so the customer can retry.
func (s *Store) CreateFeedback(ctx context.Context, feedback *models.Feedback) (*models.Booking, error) {
	booking, err := s.SetFeedbackSubmitted(ctx, feedback.BookingID)
	if err != nil {
		return nil, err
	}

	if feedback.ID == "" {
		feedback.ID = uuid.NewString()
	}
	feedback.CustomerID = booking.CustomerID
	feedback.ServiceID = booking.ServiceID
	feedback.ConsultantID = booking.ConsultantID
	feedback.CreatedAt = booking.UpdatedAt

	_, err = s.db.Collection(collFeedbacks).InsertOne(ctx, feedback)
	if err == nil {
		return booking, nil
	}

	err = classify("insert feedback", err)
	if errors.Is(err, domain.ErrDuplicate) {
		return nil, domain.ErrPreconditionFailed
	}
	if relErr := s.releaseFeedbackClaim(context.WithoutCancel(ctx), feedback.BookingID); relErr != nil {
		s.logger.Error().Err(relErr).Str("booking_id", feedback.BookingID).Msg("Failed to release feedback claim")
	}
	return nil, err
}

func (s *Store) releaseFeedbackClaim(ctx context.Context, bookingID string) error {
	filter := bson.D{{Key: "_id", Value: bookingID}, {Key: "feedback_submitted", Value: true}}
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "feedback_submitted", Value: false},
			{Key: "updated_at", Value: time.Now().UTC().Truncate(time.Millisecond)},
		}},
		{Key: "$inc", Value: bson.D{{Key: "version", Value: 1}}},
	}
	_, err := s.bookings().UpdateOne(ctx, filter, update)
	return err
}

func (s *Store) ListFeedbackByService(ctx context.Context, serviceID string) ([]*models.Feedback, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.db.Collection(collFeedbacks).Find(ctx, bson.D{{Key: "service_id", Value: serviceID}}, opts)
	if err != nil {
		return nil, classify("list feedback", err)
	}
	feedbacks := make([]*models.Feedback, 0)
	if err := cursor.All(ctx, &feedbacks); err != nil {
		return nil, classify("list feedback", err)
	}
	return feedbacks, nil
}

func ratingPipeline(serviceID string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "service_id", Value: serviceID}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$service_id"},
			{Key: "average", Value: bson.D{{Key: "$avg", Value: "$service_rating"}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
}

func (s *Store) ServiceRating(ctx context.Context, serviceID string) (*models.RatingSummary, error) {
	cursor, err := s.db.Collection(collFeedbacks).Aggregate(ctx, ratingPipeline(serviceID))
	if err != nil {
		return nil, classify("service rating", err)
	}
	defer cursor.Close(ctx)

	summary := &models.RatingSummary{ServiceID: serviceID}
	if cursor.Next(ctx) {
		var row struct {
			Average float64 `bson:"average"`
			Count   int64   `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, classify("service rating", err)
		}
		summary.Average = row.Average
		summary.Count = row.Count
	}
	if err := cursor.Err(); err != nil {
		return nil, classify("service rating", err)
	}
	return summary, nil
}
