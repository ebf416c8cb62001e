package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"consultbook/internal/auth"
	"consultbook/internal/domain"
	"consultbook/internal/export"
	"consultbook/internal/models"
	"consultbook/internal/service"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

type createBookingRequest struct {
	CustomerID   string  `json:"customerId"`
	ServiceID    string  `json:"serviceId"`
	ConsultantID *string `json:"consultantId"`
	Date         string  `json:"date"`
	Time         string  `json:"time"`
}

type rescheduleRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type feedbackRequest struct {
	BookingID         string `json:"bookingId"`
	ConsultantRating  int    `json:"consultantRating"`
	ConsultantComment string `json:"consultantComment"`
	ServiceRating     int    `json:"serviceRating"`
	ServiceComment    string `json:"serviceComment"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body", service.ErrInvalidInput)
	}
	return nil
}

func actorOf(r *http.Request) models.Actor {
	actor, _ := auth.ActorFromContext(r.Context())
	return actor
}

func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.BookingFilter{Query: strings.TrimSpace(q.Get("q"))}

	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		st, err := models.ParseStatus(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidInput, err.Error())
			return
		}
		filter.Status = &st
	}

	var err error
	if filter.Page, err = intParam(q.Get("page")); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "page must be a positive integer")
		return
	}
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "limit must be a positive integer")
		return
	}

	page, err := s.svc.Bookings.ListBookings(r.Context(), actorOf(r), strings.TrimSpace(q.Get("customer")), filter)
	if err != nil {
		writeFailure(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func intParam(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.New("invalid integer")
	}
	return v, nil
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, r, s.log, err)
		return
	}

	view, err := s.svc.Bookings.CreateBooking(r.Context(), actorOf(r), service.CreateBookingInput{
		CustomerID:   strings.TrimSpace(req.CustomerID),
		ServiceID:    strings.TrimSpace(req.ServiceID),
		ConsultantID: req.ConsultantID,
		Date:         req.Date,
		Time:         req.Time,
	})
	if err != nil {
		writeFailure(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.Bookings.GetBooking(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *HTTPServer) handleBookingHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.svc.Bookings.StatusHistory(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": history})
}

func (s *HTTPServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.Bookings.CancelBooking(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *HTTPServer) handleConfirm(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.Bookings.ConfirmBooking(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *HTTPServer) handleComplete(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.Bookings.CompleteBooking(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *HTTPServer) handleReschedule(w http.ResponseWriter, r *http.Request) {
	var req rescheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, r, s.log, err)
		return
	}

	view, err := s.svc.Bookings.RescheduleBooking(r.Context(), actorOf(r), chi.URLParam(r, "id"), req.Date, req.Time)
	if err != nil {
		writeFailure(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *HTTPServer) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, r, s.log, err)
		return
	}

	fb, err := s.svc.Feedbacks.Submit(r.Context(), actorOf(r), service.SubmitFeedbackInput{
		BookingID:         strings.TrimSpace(req.BookingID),
		ConsultantRating:  req.ConsultantRating,
		ConsultantComment: req.ConsultantComment,
		ServiceRating:     req.ServiceRating,
		ServiceComment:    req.ServiceComment,
	})
	if err != nil {
		writeFailure(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, fb)
}

func (s *HTTPServer) handleServiceFeedback(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Feedbacks.ListByService(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"feedbacks": list})
}

func (s *HTTPServer) handleServiceRating(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.Feedbacks.ServiceRating(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *HTTPServer) handleListServices(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Catalog.ListServices(r.Context())
	if err != nil {
		writeFailure(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": list})
}

func (s *HTTPServer) handleGetService(w http.ResponseWriter, r *http.Request) {
	svc, err := s.svc.Catalog.GetService(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

func (s *HTTPServer) handleGetConsultant(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.Catalog.GetConsultant(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// handleExport streams an xlsx report and archives a copy when exportDir is set.
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	from := strings.TrimSpace(r.URL.Query().Get("from"))
	to := strings.TrimSpace(r.URL.Query().Get("to"))

	views, err := s.svc.Bookings.ListByDateRange(r.Context(), actorOf(r), from, to)
	if err != nil {
		writeFailure(w, r, s.log, err)
		return
	}

	if s.exportDir != "" {
		path, err := export.Save(s.exportDir, from, to, views)
		if err != nil {
			s.log.Warn().Err(err).Msg("export archive failed")
		} else {
			s.log.Info().Str("file_path", path).Int("bookings", len(views)).Msg("Excel file created")
		}
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(from, to)))
	w.WriteHeader(http.StatusOK)
	if err := export.Write(w, from, to, views); err != nil {
		s.log.Error().Err(err).Msg("export write failed")
	}
}
