package service

import (
	"errors"
	"fmt"

	"consultbook/internal/domain"
	"consultbook/internal/lifecycle"
	"consultbook/internal/metrics"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrRateLimited  = errors.New("too many requests")
)

// storeErr translates storage errors for callers. Unknown bookings become
// the NotFound rejection; everything else is passed through.
func storeErr(err error, id string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("booking %s: %w", id, lifecycle.ErrNotFound)
	}
	return err
}

// record counts the outcome of a lifecycle action.
func record(action string, err error) {
	if err == nil {
		metrics.IncTransition(action, "ok")
		return
	}
	if code, ok := lifecycle.CodeOf(err); ok {
		metrics.IncTransition(action, "rejected")
		metrics.IncRejection(string(code))
		return
	}
	metrics.IncTransition(action, "error")
}
