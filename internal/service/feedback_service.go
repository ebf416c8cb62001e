package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"consultbook/internal/domain"
	"consultbook/internal/events"
	"consultbook/internal/lifecycle"
	"consultbook/internal/metrics"
	"consultbook/internal/models"

	"github.com/rs/zerolog"
)

// maxCommentLength ограничивает длину комментария
const maxCommentLength = 2000

type FeedbackService struct {
	bookings  domain.BookingStore
	feedbacks domain.FeedbackStore
	cache     domain.ReadCache
	eventBus  domain.EventPublisher
	ratingTTL time.Duration
	logger    *zerolog.Logger
}

func NewFeedbackService(
	bookings domain.BookingStore,
	feedbacks domain.FeedbackStore,
	cache domain.ReadCache,
	eventBus domain.EventPublisher,
	ratingTTL time.Duration,
	logger *zerolog.Logger,
) *FeedbackService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &FeedbackService{
		bookings:  bookings,
		feedbacks: feedbacks,
		cache:     cache,
		eventBus:  eventBus,
		ratingTTL: ratingTTL,
		logger:    logger,
	}
}

type SubmitFeedbackInput struct {
	BookingID         string
	ConsultantRating  int
	ConsultantComment string
	ServiceRating     int
	ServiceComment    string
}

// Submit stores the single feedback allowed for a completed booking.
func (s *FeedbackService) Submit(ctx context.Context, actor models.Actor, in SubmitFeedbackInput) (*models.Feedback, error) {
	if actor.Role != models.RoleCustomer {
		return nil, fmt.Errorf("%w: only customers leave feedback", lifecycle.ErrUnauthorized)
	}
	if strings.TrimSpace(in.BookingID) == "" {
		return nil, fmt.Errorf("%w: booking_id is required", ErrInvalidInput)
	}
	if err := lifecycle.ValidateRatings(in.ConsultantRating, in.ServiceRating); err != nil {
		return nil, err
	}
	if len(in.ConsultantComment) > maxCommentLength || len(in.ServiceComment) > maxCommentLength {
		return nil, fmt.Errorf("%w: comment is longer than %d characters", lifecycle.ErrInvalidFeedback, maxCommentLength)
	}

	feedback, booking, err := s.create(ctx, actor, in)
	record("feedback", err)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateRating(ctx, feedback.ServiceID); err != nil {
			s.logger.Warn().Err(err).Str("service_id", feedback.ServiceID).Msg("rating cache invalidation failed")
		}
	}

	s.logger.Info().Str("booking_id", feedback.BookingID).Int("service_rating", feedback.ServiceRating).
		Int("consultant_rating", feedback.ConsultantRating).Msg("feedback submitted")
	if s.eventBus != nil {
		payload := events.NewBookingPayload(booking, actor.ID, actor.Role)
		if err := s.eventBus.PublishJSON(events.EventFeedbackSubmitted, payload); err != nil {
			s.logger.Error().Err(err).Str("booking_id", booking.ID).Msg("publish event error")
		}
	}
	return feedback, nil
}

func (s *FeedbackService) create(ctx context.Context, actor models.Actor, in SubmitFeedbackInput) (*models.Feedback, *models.Booking, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		current, err := s.bookings.GetBooking(ctx, in.BookingID)
		if err != nil {
			return nil, nil, storeErr(err, in.BookingID)
		}
		if err := lifecycle.CheckOwnership(current, actor.ID, actor.Role); err != nil {
			return nil, nil, err
		}
		if err := lifecycle.CheckFeedback(current); err != nil {
			return nil, nil, err
		}

		feedback := &models.Feedback{
			BookingID:         in.BookingID,
			ConsultantRating:  in.ConsultantRating,
			ConsultantComment: strings.TrimSpace(in.ConsultantComment),
			ServiceRating:     in.ServiceRating,
			ServiceComment:    strings.TrimSpace(in.ServiceComment),
		}
		booking, err := s.feedbacks.CreateFeedback(ctx, feedback)
		if errors.Is(err, domain.ErrPreconditionFailed) {
			continue
		}
		if err != nil {
			return nil, nil, storeErr(err, in.BookingID)
		}
		return feedback, booking, nil
	}
	return nil, nil, fmt.Errorf("%w: booking %s", lifecycle.ErrFeedbackAlreadyExists, in.BookingID)
}

// ServiceRating returns the average rating, cached for ratingTTL.
func (s *FeedbackService) ServiceRating(ctx context.Context, serviceID string) (*models.RatingSummary, error) {
	if s.cache != nil {
		cached, err := s.cache.GetRating(ctx, serviceID)
		if err != nil {
			s.logger.Warn().Err(err).Str("service_id", serviceID).Msg("rating cache read failed")
		}
		metrics.IncCache("rating", cached != nil)
		if cached != nil {
			return cached, nil
		}
	}

	summary, err := s.feedbacks.ServiceRating(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetRating(ctx, summary, s.ratingTTL); err != nil {
			s.logger.Warn().Err(err).Str("service_id", serviceID).Msg("rating cache write failed")
		}
	}
	return summary, nil
}

func (s *FeedbackService) ListByService(ctx context.Context, serviceID string) ([]*models.Feedback, error) {
	return s.feedbacks.ListFeedbackByService(ctx, serviceID)
}
