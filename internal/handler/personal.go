package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pkordes/trip-basecamp/internal/domain"
)

// GetPersonalBasecamp handles GET /trips/{id}/members/{userId}/basecamp.
func (s *Server) GetPersonalBasecamp(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathUUID(w, r, "id", chi.URLParam(r, "id"))
	if !ok {
		return
	}
	userID, ok := pathUUID(w, r, "userId", chi.URLParam(r, "userId"))
	if !ok {
		return
	}

	p, err := s.personal.Get(r.Context(), tripID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, notFoundBody("personal basecamp not found"))
			return
		}
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// SetPersonalBasecamp handles PUT /trips/{id}/members/{userId}/basecamp.
func (s *Server) SetPersonalBasecamp(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathUUID(w, r, "id", chi.URLParam(r, "id"))
	if !ok {
		return
	}
	userID, ok := pathUUID(w, r, "userId", chi.URLParam(r, "userId"))
	if !ok {
		return
	}
	var body domain.BasecampFields
	if !decodeBody(w, r, &body) {
		return
	}

	p, err := s.personal.Upsert(r.Context(), tripID, userID, body)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			writeJSON(w, http.StatusUnprocessableEntity, validationBody(err))
		case errors.Is(err, domain.ErrNotFound):
			writeJSON(w, http.StatusNotFound, notFoundBody("trip not found"))
		default:
			internalError(w, r, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeletePersonalBasecamp handles DELETE /personal-basecamps/{basecampId}.
func (s *Server) DeletePersonalBasecamp(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "basecampId", chi.URLParam(r, "basecampId"))
	if !ok {
		return
	}

	if err := s.personal.Delete(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, notFoundBody("personal basecamp not found"))
			return
		}
		internalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
