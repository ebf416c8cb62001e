package lifecycle

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"consultbook/internal/models"
)

var (
	ErrInvalidSchedule = errors.New("invalid schedule")
	ErrInvalidFeedback = errors.New("invalid feedback")
)

// ParseSlot validates a date/time pair and returns the slot start in loc.
func ParseSlot(date, clock string, loc *time.Location) (time.Time, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" || clock == "" {
		return time.Time{}, fmt.Errorf("%w: date and time are required", ErrInvalidSchedule)
	}
	if loc == nil {
		loc = time.UTC
	}
	d, err := time.ParseInLocation(models.DateLayout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidSchedule)
	}
	c, err := time.ParseInLocation(models.TimeLayout, clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: time must be HH:MM", ErrInvalidSchedule)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), 0, 0, loc), nil
}

// ValidateFutureSlot rejects malformed slots and slots that already started.
func ValidateFutureSlot(date, clock string, now time.Time) error {
	slot, err := ParseSlot(date, clock, now.Location())
	if err != nil {
		return err
	}
	if !slot.After(now) {
		return fmt.Errorf("%w: %s %s is in the past", ErrInvalidSchedule, date, clock)
	}
	return nil
}

// ValidateRatings checks both feedback ratings are within bounds.
func ValidateRatings(consultantRating, serviceRating int) error {
	if consultantRating < models.MinRating || consultantRating > models.MaxRating {
		return fmt.Errorf("%w: consultant rating must be between %d and %d", ErrInvalidFeedback, models.MinRating, models.MaxRating)
	}
	if serviceRating < models.MinRating || serviceRating > models.MaxRating {
		return fmt.Errorf("%w: service rating must be between %d and %d", ErrInvalidFeedback, models.MinRating, models.MaxRating)
	}
	return nil
}
