package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"consultbook/internal/auth"
	"consultbook/internal/config"
	"consultbook/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services are the use cases exposed over HTTP and gRPC.
type Services struct {
	Bookings  *service.BookingService
	Feedbacks *service.FeedbackService
	Catalog   *service.CatalogService
	Store     Pinger
}

// HTTPServer exposes the booking lifecycle as a JSON API.
type HTTPServer struct {
	cfg       config.APIConfig
	svc       Services
	issuer    *auth.Issuer
	limiter   *rateLimiter
	exportDir string
	server    *http.Server
	log       zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, svc Services, issuer *auth.Issuer, exportDir string, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:       cfg,
		svc:       svc,
		issuer:    issuer,
		limiter:   newRateLimiter(cfg.RateLimit),
		exportDir: exportDir,
		log:       zerolog.Nop(),
	}
	if logger != nil {
		srv.log = logger.With().Str("component", "http").Logger()
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
	}
	return srv
}

func (s *HTTPServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID, loggingMiddleware(s.log), recoverer(s.log), timeoutMiddleware(s.cfg.RequestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", s.handleReady)

	public := func(r chi.Router) {
		r.Use(rateLimit(s.limiter))
		r.Get("/services", s.handleListServices)
		r.Get("/services/{id}", s.handleGetService)
		r.Get("/consultants/{id}", s.handleGetConsultant)
		r.Get("/feedbacks/service/{id}", s.handleServiceFeedback)
		r.Get("/feedbacks/service-rating/{id}", s.handleServiceRating)
	}

	private := func(r chi.Router) {
		r.Use(authenticate(s.issuer), rateLimit(s.limiter))
		r.Get("/bookings", s.handleListBookings)
		r.Post("/bookings", s.handleCreateBooking)
		r.Get("/bookings/{id}", s.handleGetBooking)
		r.Get("/bookings/{id}/history", s.handleBookingHistory)
		r.Put("/bookings/{id}/cancel", s.handleCancel)
		r.Put("/bookings/{id}/confirm", s.handleConfirm)
		r.Put("/bookings/{id}/complete", s.handleComplete)
		r.Put("/bookings/{id}/reschedule", s.handleReschedule)
		r.Post("/feedbacks", s.handleSubmitFeedback)
		r.Get("/admin/bookings/export", s.handleExport)
	}

	// Одни и те же маршруты доступны в корне и под /api
	r.Group(public)
	r.Group(private)
	r.Route("/api", func(r chi.Router) {
		r.Group(public)
		r.Group(private)
	})

	return r
}

// Handler returns the routed handler, used by tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.svc.Store == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	if err := s.svc.Store.Ping(r.Context()); err != nil {
		s.log.Warn().Err(err).Msg("readiness check failed")
		writeError(w, http.StatusServiceUnavailable, codeUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
