package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"consultbook/internal/auth"
	"consultbook/internal/domain"
	"consultbook/internal/lifecycle"
	"consultbook/internal/service"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
)

const (
	codeUnauthenticated = "Unauthenticated"
	codeInvalidInput    = "InvalidInput"
	codeRateLimited     = "RateLimited"
	codeUnavailable     = "Unavailable"
	codeInternal        = "Internal"
)

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// apiFailure is an error translated for the wire.
type apiFailure struct {
	httpStatus int
	grpcCode   codes.Code
	code       string
	message    string
}

// classify maps service and store errors onto client-facing failures.
// Policy rejections keep their lifecycle code so the caller can tell
// "your action was invalid" from "please retry".
func classify(err error) apiFailure {
	if code, ok := lifecycle.CodeOf(err); ok {
		switch code {
		case lifecycle.CodeNotFound:
			return apiFailure{http.StatusNotFound, codes.NotFound, string(code), err.Error()}
		case lifecycle.CodeUnauthorized:
			return apiFailure{http.StatusForbidden, codes.PermissionDenied, string(code), err.Error()}
		default:
			return apiFailure{http.StatusConflict, codes.FailedPrecondition, string(code), err.Error()}
		}
	}

	switch {
	case errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrInvalidToken):
		return apiFailure{http.StatusUnauthorized, codes.Unauthenticated, codeUnauthenticated, err.Error()}
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, lifecycle.ErrInvalidSchedule),
		errors.Is(err, lifecycle.ErrInvalidFeedback):
		return apiFailure{http.StatusBadRequest, codes.InvalidArgument, codeInvalidInput, err.Error()}
	case errors.Is(err, service.ErrCatalogNotFound):
		return apiFailure{http.StatusNotFound, codes.NotFound, string(lifecycle.CodeNotFound), err.Error()}
	case errors.Is(err, service.ErrRateLimited):
		return apiFailure{http.StatusTooManyRequests, codes.ResourceExhausted, codeRateLimited, err.Error()}
	case errors.Is(err, domain.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return apiFailure{http.StatusServiceUnavailable, codes.Unavailable, codeUnavailable, "storage temporarily unavailable, please retry"}
	default:
		return apiFailure{http.StatusInternalServerError, codes.Internal, codeInternal, "internal error"}
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, ErrorEnvelope{Error: APIError{Code: code, Message: message}})
}

// writeFailure logs unexpected errors and writes the envelope.
func writeFailure(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	f := classify(err)
	if f.httpStatus >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("request_id", RequestIDFromContext(r.Context())).
			Str("path", r.URL.Path).Msg("request failed")
	}
	writeError(w, f.httpStatus, f.code, f.message)
}
