package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/trip-basecamp/internal/domain"
)

// Request headers that identify the writer of a shared basecamp.
const (
	HeaderUserID   = "X-User-ID"
	HeaderClientID = "X-Client-ID"
)

type basecampRequest struct {
	Name        string              `json:"name"`
	Address     string              `json:"address"`
	Coordinates *domain.Coordinates `json:"coordinates,omitempty"`
	BaseVersion int64               `json:"base_version"`
}

// GetBasecamp handles GET /trips/{id}/basecamp. 404 means the trip has no
// basecamp (or it was cleared).
func (s *Server) GetBasecamp(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathUUID(w, r, "id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	b, err := s.basecamps.Get(r.Context(), tripID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, notFoundBody("basecamp not found"))
			return
		}
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// SetBasecamp handles PUT /trips/{id}/basecamp, a conditional write.
func (s *Server) SetBasecamp(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathUUID(w, r, "id", chi.URLParam(r, "id"))
	if !ok {
		return
	}
	userID, ok := writerID(w, r)
	if !ok {
		return
	}
	var body basecampRequest
	if !decodeBody(w, r, &body) {
		return
	}

	b, err := s.basecamps.Set(r.Context(), tripID, domain.SharedWrite{
		Fields: domain.BasecampFields{
			Name:        body.Name,
			Address:     body.Address,
			Coordinates: body.Coordinates,
		},
		BaseVersion: body.BaseVersion,
		UserID:      userID,
		ClientID:    r.Header.Get(HeaderClientID),
	})
	if err != nil {
		writeBasecampError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// ClearBasecamp handles DELETE /trips/{id}/basecamp?base_version=N.
func (s *Server) ClearBasecamp(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathUUID(w, r, "id", chi.URLParam(r, "id"))
	if !ok {
		return
	}
	userID, ok := writerID(w, r)
	if !ok {
		return
	}
	var base *int64
	if !queryInt(w, r, "base_version", &base) {
		return
	}

	write := domain.SharedWrite{UserID: userID, ClientID: r.Header.Get(HeaderClientID)}
	if base != nil {
		write.BaseVersion = *base
	}
	if err := s.basecamps.Clear(r.Context(), tripID, write); err != nil {
		writeBasecampError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeBasecampError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrConflict):
		writeJSON(w, http.StatusConflict, conflictBody())
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, notFoundBody("trip not found"))
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusUnprocessableEntity, validationBody(err))
	default:
		internalError(w, r, err)
	}
}

// writerID reads the optional X-User-ID header.
func writerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	v := r.Header.Get(HeaderUserID)
	if v == "" {
		return uuid.Nil, true
	}
	id, err := uuid.Parse(v)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorDetail{
			Code:    "invalid_parameter",
			Message: "invalid " + HeaderUserID + " header",
		}})
		return uuid.Nil, false
	}
	return id, true
}
