package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"consultbook/internal/domain"
	"consultbook/internal/models"

	"github.com/google/uuid"
)

// CreateFeedback flips the booking's feedback flag and inserts the
// feedback in one transaction. The booking must be Completed without
// feedback, otherwise nothing is written.
func (db *DB) CreateFeedback(ctx context.Context, feedback *models.Feedback) (*models.Booking, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify("create feedback", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	flip := `UPDATE bookings SET feedback_submitted = 1, version = version + 1, updated_at = ?
	         WHERE id = ? AND status = ? AND feedback_submitted = 0`
	booking, err := applyConditional(ctx, tx, "create feedback", feedback.BookingID, flip,
		time.Now().UTC(), feedback.BookingID, models.StatusCompleted)
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

	insert := `INSERT INTO feedbacks (id, booking_id, customer_id, service_id, consultant_id,
	               consultant_rating, consultant_comment, service_rating, service_comment, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, insert,
		feedback.ID,
		feedback.BookingID,
		feedback.CustomerID,
		feedback.ServiceID,
		feedback.ConsultantID,
		feedback.ConsultantRating,
		feedback.ConsultantComment,
		feedback.ServiceRating,
		feedback.ServiceComment,
		feedback.CreatedAt,
	)
	if err != nil {
		err = classify("insert feedback", err)
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, domain.ErrPreconditionFailed
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, classify("create feedback", err)
	}
	return booking, nil
}

func (db *DB) ListFeedbackByService(ctx context.Context, serviceID string) ([]*models.Feedback, error) {
	query := `SELECT id, booking_id, customer_id, service_id, consultant_id, consultant_rating,
	                 consultant_comment, service_rating, service_comment, created_at
	          FROM feedbacks WHERE service_id = ? ORDER BY created_at DESC`
	rows, err := db.QueryContext(ctx, query, serviceID)
	if err != nil {
		return nil, classify("list feedback", err)
	}
	defer rows.Close()

	feedbacks := make([]*models.Feedback, 0)
	for rows.Next() {
		var (
			f          models.Feedback
			consultant sql.NullString
		)
		err := rows.Scan(&f.ID, &f.BookingID, &f.CustomerID, &f.ServiceID, &consultant, &f.ConsultantRating,
			&f.ConsultantComment, &f.ServiceRating, &f.ServiceComment, &f.CreatedAt)
		if err != nil {
			return nil, classify("scan feedback", err)
		}
		if consultant.Valid {
			f.ConsultantID = &consultant.String
		}
		feedbacks = append(feedbacks, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list feedback", err)
	}
	return feedbacks, nil
}

// ServiceRating aggregates service ratings on read.
func (db *DB) ServiceRating(ctx context.Context, serviceID string) (*models.RatingSummary, error) {
	summary := &models.RatingSummary{ServiceID: serviceID}
	query := `SELECT COALESCE(AVG(service_rating), 0), COUNT(*) FROM feedbacks WHERE service_id = ?`
	if err := db.QueryRowContext(ctx, query, serviceID).Scan(&summary.Average, &summary.Count); err != nil {
		return nil, classify("service rating", err)
	}
	return summary, nil
}
