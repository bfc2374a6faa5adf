package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/trip-basecamp/internal/domain"
)

// EventTypeBasecampChanged is the only event type sent on the events stream.
const EventTypeBasecampChanged = "basecamp_changed"

// Event is one websocket text frame. It carries no basecamp data; clients
// refetch on receipt.
type Event struct {
	Type   string    `json:"type"`
	TripID uuid.UUID `json:"trip_id"`
}

const eventWriteTimeout = 5 * time.Second

// BasecampEvents handles GET /trips/{id}/basecamp/events. It upgrades to a
// websocket and sends one frame per change of the trip's shared basecamp
// until either side goes away.
func (s *Server) BasecampEvents(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathUUID(w, r, "id", chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if _, err := s.trips.GetByID(r.Context(), tripID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, notFoundBody("trip not found"))
			return
		}
		internalError(w, r, err)
		return
	}

	// Subscribe before the handshake completes so no change in between is lost.
	events, cancel := s.events.Subscribe(tripID)
	defer cancel()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.OriginPatterns})
	if err != nil {
		slog.WarnContext(r.Context(), "websocket upgrade failed", "trip_id", tripID, "error", err)
		return
	}
	defer conn.CloseNow()

	// Clients never send; CloseRead handles control frames and cancels ctx
	// when the peer disconnects.
	ctx := conn.CloseRead(r.Context())
	frame, _ := json.Marshal(Event{Type: EventTypeBasecampChanged, TripID: tripID})

	slog.DebugContext(ctx, "basecamp events subscriber connected", "trip_id", tripID)
	for {
		select {
		case <-ctx.Done():
			slog.DebugContext(r.Context(), "basecamp events subscriber gone", "trip_id", tripID)
			return
		case _, open := <-events:
			if !open {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			if err := writeFrame(ctx, conn, frame); err != nil {
				slog.DebugContext(ctx, "basecamp event write failed", "trip_id", tripID, "error", err)
				return
			}
		}
	}
}

func writeFrame(ctx context.Context, conn *websocket.Conn, frame []byte) error {
	ctx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, frame)
}
