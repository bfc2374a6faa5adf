// Package handler implements the HTTP API of the trip basecamp service.
// All handlers are methods on Server. Methods are split into domain-specific
// files (health.go, trip.go, basecamp.go, ...) but all share the same Server
// struct so they can access its dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/trip-basecamp/internal/domain"
)

// TripServicer defines the business operations the trip handlers depend on.
// Defining the interface here (in the consumer package) lets handler tests
// inject a mock without touching the database or service layer.
type TripServicer interface {
	Create(ctx context.Context, trip domain.Trip) (domain.Trip, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error)
	ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Trip, int64, error)
	Update(ctx context.Context, trip domain.Trip) (domain.Trip, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// BasecampServicer is the authoritative store for shared basecamps.
type BasecampServicer interface {
	Get(ctx context.Context, tripID uuid.UUID) (domain.Basecamp, error)
	Set(ctx context.Context, tripID uuid.UUID, w domain.SharedWrite) (domain.Basecamp, error)
	Clear(ctx context.Context, tripID uuid.UUID, w domain.SharedWrite) error
}

// PersonalBasecampServicer stores per-member basecamps.
type PersonalBasecampServicer interface {
	Get(ctx context.Context, tripID, userID uuid.UUID) (domain.PersonalBasecamp, error)
	Upsert(ctx context.Context, tripID, userID uuid.UUID, fields domain.BasecampFields) (domain.PersonalBasecamp, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// EventSource hands out per-trip change subscriptions (notify.Hub).
type EventSource interface {
	Subscribe(tripID uuid.UUID) (<-chan struct{}, func())
}

// Server serves every API endpoint. Wire it in main.go via Routes.
type Server struct {
	trips     TripServicer
	basecamps BasecampServicer
	personal  PersonalBasecampServicer
	events    EventSource

	// OriginPatterns is passed to the websocket handshake. Empty means
	// same-origin only.
	OriginPatterns []string
}

// NewServer constructs the Server with all its dependencies.
func NewServer(trips TripServicer, basecamps BasecampServicer, personal PersonalBasecampServicer, events EventSource) *Server {
	return &Server{trips: trips, basecamps: basecamps, personal: personal, events: events}
}

// NewHealthHandler returns a Server for health-check-only use.
func NewHealthHandler() *Server {
	return NewServer(nil, nil, nil, nil)
}

// Routes returns the API router. Cross-cutting middleware (request ids,
// logging, CORS) is applied by the caller.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)

	r.Route("/trips", func(r chi.Router) {
		r.Post("/", s.CreateTrip)
		r.Get("/", s.ListTrips)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetTrip)
			r.Put("/", s.UpdateTrip)
			r.Delete("/", s.DeleteTrip)

			r.Get("/basecamp", s.GetBasecamp)
			r.Put("/basecamp", s.SetBasecamp)
			r.Delete("/basecamp", s.ClearBasecamp)
			r.Get("/basecamp/events", s.BasecampEvents)

			r.Get("/members/{userId}/basecamp", s.GetPersonalBasecamp)
			r.Put("/members/{userId}/basecamp", s.SetPersonalBasecamp)
		})
	})

	r.Delete("/personal-basecamps/{basecampId}", s.DeletePersonalBasecamp)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, notFoundBody("route not found"))
	})
	return r
}

// internalError logs err and writes a generic 500.
func internalError(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error: errorDetail{Code: "internal_error", Message: "internal server error"},
	})
}
