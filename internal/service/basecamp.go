package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pkordes/trip-basecamp/internal/domain"
	"github.com/pkordes/trip-basecamp/internal/repo"
)

// BasecampService is the authoritative store for shared basecamps.
// It normalizes and validates writes before the conditional repo call and
// passes domain.ErrConflict through unchanged so handlers can report it.
type BasecampService struct {
	repo repo.BasecampRepo
}

// NewBasecampService constructs a BasecampService backed by r.
func NewBasecampService(r repo.BasecampRepo) *BasecampService {
	return &BasecampService{repo: r}
}

// Get returns the trip's current basecamp.
// Returns domain.ErrNotFound when the trip has none.
func (s *BasecampService) Get(ctx context.Context, tripID uuid.UUID) (domain.Basecamp, error) {
	b, err := s.repo.Get(ctx, tripID)
	if err != nil {
		return domain.Basecamp{}, fmt.Errorf("service.BasecampService.Get: %w", err)
	}
	return b, nil
}

// Set conditionally replaces the trip's basecamp.
// Returns domain.ErrValidation for bad input and domain.ErrConflict when
// another writer's change was accepted first.
func (s *BasecampService) Set(ctx context.Context, tripID uuid.UUID, w domain.SharedWrite) (domain.Basecamp, error) {
	w.Fields = w.Fields.Normalize()
	if err := w.Fields.Validate(); err != nil {
		return domain.Basecamp{}, fmt.Errorf("service.BasecampService.Set: %w", err)
	}
	if w.BaseVersion < 0 {
		return domain.Basecamp{}, fmt.Errorf("service.BasecampService.Set: %w: base_version must not be negative", domain.ErrValidation)
	}
	b, err := s.repo.Set(ctx, tripID, w)
	if err != nil {
		return domain.Basecamp{}, fmt.Errorf("service.BasecampService.Set: %w", err)
	}
	return b, nil
}

// Clear conditionally removes the trip's basecamp. Clearing an absent
// basecamp succeeds.
func (s *BasecampService) Clear(ctx context.Context, tripID uuid.UUID, w domain.SharedWrite) error {
	if w.BaseVersion < 0 {
		return fmt.Errorf("service.BasecampService.Clear: %w: base_version must not be negative", domain.ErrValidation)
	}
	if err := s.repo.Clear(ctx, tripID, w); err != nil {
		return fmt.Errorf("service.BasecampService.Clear: %w", err)
	}
	return nil
}
