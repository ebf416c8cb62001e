package lifecycle

import (
	"errors"
	"fmt"
)

// Code is a policy rejection reason shown to the client.
type Code string

const (
	CodeNotFound              Code = "NotFound"
	CodeAlreadyTerminal       Code = "AlreadyTerminal"
	CodeIllegalTransition     Code = "IllegalTransition"
	CodeRescheduleAlreadyUsed Code = "RescheduleAlreadyUsed"
	CodeBookingNotEditable    Code = "BookingNotEditable"
	CodeFeedbackAlreadyExists Code = "FeedbackAlreadyExists"
	CodeBookingNotCompleted   Code = "BookingNotCompleted"
	CodeUnauthorized          Code = "Unauthorized"
)

// Error is a rejected lifecycle action. Two errors match under errors.Is
// when their codes are equal.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func reject(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrNotFound              = &Error{Code: CodeNotFound}
	ErrAlreadyTerminal       = &Error{Code: CodeAlreadyTerminal}
	ErrIllegalTransition     = &Error{Code: CodeIllegalTransition}
	ErrRescheduleAlreadyUsed = &Error{Code: CodeRescheduleAlreadyUsed}
	ErrBookingNotEditable    = &Error{Code: CodeBookingNotEditable}
	ErrFeedbackAlreadyExists = &Error{Code: CodeFeedbackAlreadyExists}
	ErrBookingNotCompleted   = &Error{Code: CodeBookingNotCompleted}
	ErrUnauthorized          = &Error{Code: CodeUnauthorized}
)

// CodeOf extracts the rejection code, if any.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}
