package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"consultbook/internal/domain"
	"consultbook/internal/models"
)

type scanner interface {
	Scan(dest ...any) error
}

func scanBooking(row scanner) (*models.Booking, error) {
	var (
		b          models.Booking
		consultant sql.NullString
	)
	err := row.Scan(
		&b.ID, &b.CustomerID, &b.ServiceID, &consultant, &b.Date, &b.Time, &b.Status,
		&b.RescheduleUsed, &b.CheckinCode, &b.FeedbackSubmitted, &b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}
	if consultant.Valid {
		b.ConsultantID = &consultant.String
	}
	return &b, nil
}

func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) (string, error) {
	booking.Prepare(time.Now().UTC())

	query := `INSERT INTO bookings (` + bookingColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		booking.ID,
		booking.CustomerID,
		booking.ServiceID,
		booking.ConsultantID,
		booking.Date,
		booking.Time,
		booking.Status,
		booking.RescheduleUsed,
		booking.CheckinCode,
		booking.FeedbackSubmitted,
		booking.CreatedAt,
		booking.UpdatedAt,
		booking.Version,
	)
	if err != nil {
		return "", classify("create booking", err)
	}
	return booking.ID, nil
}

func (db *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	return getBooking(ctx, db, id)
}

func getBooking(ctx context.Context, q queryer, id string) (*models.Booking, error) {
	row := q.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if err != nil {
		return nil, classify("get booking", err)
	}
	return b, nil
}

// ListBookingsByCustomer returns the customer's bookings, newest first.
func (db *DB) ListBookingsByCustomer(ctx context.Context, customerID string) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE customer_id = ? ORDER BY created_at DESC, rowid DESC`
	return db.queryBookings(ctx, "list bookings by customer", query, customerID)
}

// ListBookingsByDateRange returns bookings scheduled between from and to inclusive.
func (db *DB) ListBookingsByDateRange(ctx context.Context, from, to string) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE date >= ? AND date <= ? ORDER BY date ASC, time ASC`
	return db.queryBookings(ctx, "list bookings by date range", query, from, to)
}

func (db *DB) queryBookings(ctx context.Context, op, query string, args ...any) ([]*models.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()

	bookings := make([]*models.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, classify(op, err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, err)
	}
	return bookings, nil
}

// UpdateStatus moves the booking to status "to" only if it is still in "from".
func (db *DB) UpdateStatus(ctx context.Context, id string, from, to models.Status) (*models.Booking, error) {
	query := `UPDATE bookings SET status = ?, version = version + 1, updated_at = ?
	          WHERE id = ? AND status = ?`
	return db.conditionalUpdate(ctx, "update status", id, query, to, time.Now().UTC(), id, from)
}

// UpdateSchedule applies the one allowed reschedule of a pending booking.
func (db *DB) UpdateSchedule(ctx context.Context, id, date, clock string) (*models.Booking, error) {
	query := `UPDATE bookings SET date = ?, time = ?, reschedule_used = 1, version = version + 1, updated_at = ?
	          WHERE id = ? AND status = ? AND reschedule_used = 0`
	return db.conditionalUpdate(ctx, "update schedule", id, query, date, clock, time.Now().UTC(), id, models.StatusPending)
}

func (db *DB) SetFeedbackSubmitted(ctx context.Context, id string) (*models.Booking, error) {
	query := `UPDATE bookings SET feedback_submitted = 1, version = version + 1, updated_at = ?
	          WHERE id = ? AND status = ? AND feedback_submitted = 0`
	return db.conditionalUpdate(ctx, "set feedback submitted", id, query, time.Now().UTC(), id, models.StatusCompleted)
}

// conditionalUpdate runs a guarded UPDATE and reads the row back in the
// same transaction. Zero affected rows means NotFound or PreconditionFailed.
func (db *DB) conditionalUpdate(ctx context.Context, op, id, query string, args ...any) (*models.Booking, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify(op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	b, err := applyConditional(ctx, tx, op, id, query, args...)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, classify(op, err)
	}
	return b, nil
}

func applyConditional(ctx context.Context, tx *sql.Tx, op, id, query string, args ...any) (*models.Booking, error) {
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, classify(op, err)
	}
	if n == 0 {
		return nil, missOrConflict(ctx, tx, op, id)
	}
	return getBooking(ctx, tx, id)
}

func (db *DB) RecordStatusEvent(ctx context.Context, event *models.StatusEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO booking_status_events (booking_id, from_status, to_status, actor_id, actor_role, created_at)
	          VALUES (?, ?, ?, ?, ?, ?)`
	result, err := db.ExecContext(ctx, query,
		event.BookingID, event.FromStatus, event.ToStatus, event.ActorID, event.ActorRole, event.CreatedAt)
	if err != nil {
		return classify("record status event", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	event.ID = id
	return nil
}

func (db *DB) ListStatusEvents(ctx context.Context, bookingID string) ([]*models.StatusEvent, error) {
	query := `SELECT id, booking_id, from_status, to_status, actor_id, actor_role, created_at
	          FROM booking_status_events WHERE booking_id = ? ORDER BY id ASC`
	rows, err := db.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, classify("list status events", err)
	}
	defer rows.Close()

	events := make([]*models.StatusEvent, 0)
	for rows.Next() {
		var e models.StatusEvent
		if err := rows.Scan(&e.ID, &e.BookingID, &e.FromStatus, &e.ToStatus, &e.ActorID, &e.ActorRole, &e.CreatedAt); err != nil {
			return nil, classify("scan status event", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list status events", err)
	}
	return events, nil
}

var _ domain.Store = (*DB)(nil)
