package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pkordes/trip-basecamp/internal/domain"
	"github.com/pkordes/trip-basecamp/internal/repo"
)

// PersonalBasecampService stores per-member basecamps. Each record has a
// single writer, so there is no conflict path.
type PersonalBasecampService struct {
	repo repo.PersonalBasecampRepo
}

// NewPersonalBasecampService constructs a PersonalBasecampService backed by r.
func NewPersonalBasecampService(r repo.PersonalBasecampRepo) *PersonalBasecampService {
	return &PersonalBasecampService{repo: r}
}

// Get returns the member's basecamp for a trip, or domain.ErrNotFound.
func (s *PersonalBasecampService) Get(ctx context.Context, tripID, userID uuid.UUID) (domain.PersonalBasecamp, error) {
	p, err := s.repo.Get(ctx, tripID, userID)
	if err != nil {
		return domain.PersonalBasecamp{}, fmt.Errorf("service.PersonalBasecampService.Get: %w", err)
	}
	return p, nil
}

// Upsert validates and stores the member's basecamp.
func (s *PersonalBasecampService) Upsert(ctx context.Context, tripID, userID uuid.UUID, fields domain.BasecampFields) (domain.PersonalBasecamp, error) {
	fields = fields.Normalize()
	if err := fields.Validate(); err != nil {
		return domain.PersonalBasecamp{}, fmt.Errorf("service.PersonalBasecampService.Upsert: %w", err)
	}
	if userID == uuid.Nil {
		return domain.PersonalBasecamp{}, fmt.Errorf("service.PersonalBasecampService.Upsert: %w: user id is required", domain.ErrValidation)
	}
	p, err := s.repo.Upsert(ctx, domain.PersonalBasecamp{
		TripID:      tripID,
		UserID:      userID,
		Name:        fields.Name,
		Address:     fields.Address,
		Coordinates: fields.Coordinates,
	})
	if err != nil {
		return domain.PersonalBasecamp{}, fmt.Errorf("service.PersonalBasecampService.Upsert: %w", err)
	}
	return p, nil
}

// Delete removes a personal basecamp by ID.
func (s *PersonalBasecampService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("service.PersonalBasecampService.Delete: %w", err)
	}
	return nil
}
