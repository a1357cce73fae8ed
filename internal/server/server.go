// Package server exposes the activity report over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/naka-gawa/github-activity/internal/domain"
	"github.com/naka-gawa/github-activity/internal/usecase"
	"github.com/rs/zerolog"
)

// WelcomeMessage is served on the root path.
const WelcomeMessage = "Welcome to the GitHub Activity Tracker! Navigate to /api/github-activity to see data."

// ActivityService produces the activity report of an account.
type ActivityService interface {
	FetchActivity(ctx context.Context, username string) (*domain.ActivityReport, error)
}

// Handler serves the activity endpoints for one configured account.
type Handler struct {
	service  ActivityService
	username string
	logger   zerolog.Logger
}

// NewHandler creates a Handler reporting on username.
func NewHandler(service ActivityService, username string, logger zerolog.Logger) *Handler {
	return &Handler{
		service:  service,
		username: username,
		logger:   logger,
	}
}

// NewRouter creates a new Chi router with all routes configured.
func NewRouter(h *Handler, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(WelcomeMessage))
	})

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Get("/api/github-activity", h.Activity)
	r.Get("/api/github-activity/summary", h.Summary)

	return r
}

// Activity runs the aggregation and returns the report. Listing failures are
// part of the report and are served with 200; anything else is a 500.
func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.FetchActivity(r.Context(), h.username)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	SendJSON(w, http.StatusOK, report)
}

// Summary runs the aggregation and returns account-wide totals.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.FetchActivity(r.Context(), h.username)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	if report.Failed() {
		SendJSON(w, http.StatusOK, report.Failure)
		return
	}
	SendJSON(w, http.StatusOK, usecase.Summarize(report.Repositories))
}

func (h *Handler) sendError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error().
		Err(err).
		Str("request_id", chimiddleware.GetReqID(r.Context())).
		Msg("Failed to fetch GitHub activity")
	SendJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

// SendJSON writes v as a JSON response with the given status.
func SendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// requestLogger logs one line per request once it has been served.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info().
					Str("request_id", chimiddleware.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("duration", time.Since(start)).
					Msg("http request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
