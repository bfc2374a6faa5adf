package basecamp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pkordes/trip-basecamp/internal/domain"
)

// PersonalCoordinator runs optimistic writes of personal basecamps. Each
// record has one writer, so a failed write always rolls back; there is no
// conflict branch, no fingerprint and no notification.
type PersonalCoordinator struct {
	store PersonalStore
	cache *Cache
	log   *slog.Logger
}

// NewPersonalCoordinator returns a PersonalCoordinator writing through store
// into cache. A nil logger selects slog.Default().
func NewPersonalCoordinator(store PersonalStore, cache *Cache, logger *slog.Logger) *PersonalCoordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &PersonalCoordinator{
		store: store,
		cache: cache,
		log:   logger.With("component", "basecamp.personal"),
	}
}

// SetPersonal replaces the member's basecamp, showing it in the cache before
// the store confirms it.
func (p *PersonalCoordinator) SetPersonal(ctx context.Context, tripID, userID uuid.UUID, fields domain.BasecampFields) (Result[domain.PersonalBasecamp], error) {
	fields = fields.Normalize()
	if err := fields.Validate(); err != nil {
		return Result[domain.PersonalBasecamp]{State: StateRejected}, fmt.Errorf("basecamp.PersonalCoordinator.SetPersonal: %w", err)
	}

	previous, optimistic, rev := p.cache.applyPersonal(tripID, userID, domain.PersonalBasecamp{
		TripID:      tripID,
		UserID:      userID,
		Name:        fields.Name,
		Address:     fields.Address,
		Coordinates: fields.Coordinates,
	})

	stored, err := p.store.UpsertPersonal(ctx, optimistic)
	if err != nil {
		return p.rollback(ctx, tripID, userID, "SetPersonal", rev, previous, err)
	}

	p.cache.putPersonalIf(tripID, userID, rev, &stored)
	return Result[domain.PersonalBasecamp]{State: StateCommitted, Record: &stored}, nil
}

// ClearPersonal removes the member's basecamp. Clearing a member with no
// basecamp succeeds without a write.
func (p *PersonalCoordinator) ClearPersonal(ctx context.Context, tripID, userID uuid.UUID) (Result[domain.PersonalBasecamp], error) {
	target := p.cache.Personal(tripID, userID)
	if target == nil {
		// The delete is by record id, which only the store may know.
		fetched, err := p.store.GetPersonal(ctx, tripID, userID)
		if err != nil {
			return Result[domain.PersonalBasecamp]{State: StateRolledBack},
				fmt.Errorf("basecamp.PersonalCoordinator.ClearPersonal: %w: %w", ErrWriteFailed, err)
		}
		if fetched == nil {
			return Result[domain.PersonalBasecamp]{State: StateCommitted}, nil
		}
		target = fetched
	}

	previous, rev := p.cache.swapPersonal(tripID, userID, nil)

	err := p.store.DeletePersonal(ctx, target.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return p.rollback(ctx, tripID, userID, "ClearPersonal", rev, previous, err)
	}
	return Result[domain.PersonalBasecamp]{State: StateCommitted}, nil
}

func (p *PersonalCoordinator) rollback(
	ctx context.Context,
	tripID, userID uuid.UUID,
	op string,
	rev uint64,
	previous *domain.PersonalBasecamp,
	cause error,
) (Result[domain.PersonalBasecamp], error) {
	p.cache.putPersonalIf(tripID, userID, rev, previous)
	p.log.WarnContext(ctx, "personal basecamp write rolled back",
		"trip_id", tripID, "user_id", userID, "op", op, "error", cause)
	return Result[domain.PersonalBasecamp]{State: StateRolledBack, Record: clonePersonal(previous)},
		fmt.Errorf("basecamp.PersonalCoordinator.%s: %w: %w", op, ErrWriteFailed, cause)
}
