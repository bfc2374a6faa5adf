package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/trip-basecamp/internal/domain"
)

// PersonalBasecampRepo persists per-member basecamps. There is exactly one
// writer per row, so writes are plain upserts with no conflict detection.
type PersonalBasecampRepo interface {
	// Get returns the member's basecamp for a trip.
	// Returns domain.ErrNotFound if the member has none.
	Get(ctx context.Context, tripID, userID uuid.UUID) (domain.PersonalBasecamp, error)

	// Upsert inserts or replaces the member's basecamp keyed by (trip, user).
	// Returns domain.ErrNotFound if the trip does not exist.
	Upsert(ctx context.Context, p domain.PersonalBasecamp) (domain.PersonalBasecamp, error)

	// Delete removes a personal basecamp by ID.
	// Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

type pgPersonalBasecampRepo struct {
	db db
}

// NewPersonalBasecampRepo constructs a PersonalBasecampRepo backed by db.
func NewPersonalBasecampRepo(db db) PersonalBasecampRepo {
	return &pgPersonalBasecampRepo{db: db}
}

const personalColumns = `id, trip_id, user_id, name, address, lat, lng, created_at, updated_at`

func (r *pgPersonalBasecampRepo) Get(ctx context.Context, tripID, userID uuid.UUID) (domain.PersonalBasecamp, error) {
	const q = `
		SELECT ` + personalColumns + `
		FROM personal_basecamps
		WHERE trip_id = @trip_id AND user_id = @user_id`

	result, err := scanPersonal(r.db.QueryRow(ctx, q, pgx.NamedArgs{"trip_id": tripID, "user_id": userID}))
	if err != nil {
		return domain.PersonalBasecamp{}, fmt.Errorf("repo.PersonalBasecampRepo.Get: %w", err)
	}
	return result, nil
}

func (r *pgPersonalBasecampRepo) Upsert(ctx context.Context, p domain.PersonalBasecamp) (domain.PersonalBasecamp, error) {
	const q = `
		INSERT INTO personal_basecamps (trip_id, user_id, name, address, lat, lng)
		VALUES (@trip_id, @user_id, @name, @address, @lat, @lng)
		ON CONFLICT (trip_id, user_id) DO UPDATE
		SET name       = EXCLUDED.name,
		    address    = EXCLUDED.address,
		    lat        = EXCLUDED.lat,
		    lng        = EXCLUDED.lng,
		    updated_at = now()
		RETURNING ` + personalColumns

	lat, lng := coordinateArgs(p.Coordinates)
	args := pgx.NamedArgs{
		"trip_id": p.TripID,
		"user_id": p.UserID,
		"name":    p.Name,
		"address": p.Address,
		"lat":     lat,
		"lng":     lng,
	}

	result, err := scanPersonal(r.db.QueryRow(ctx, q, args))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return domain.PersonalBasecamp{}, fmt.Errorf("repo.PersonalBasecampRepo.Upsert: trip %s: %w", p.TripID, domain.ErrNotFound)
		}
		return domain.PersonalBasecamp{}, fmt.Errorf("repo.PersonalBasecampRepo.Upsert: %w", err)
	}
	return result, nil
}

func (r *pgPersonalBasecampRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM personal_basecamps WHERE id = @id`, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.PersonalBasecampRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.PersonalBasecampRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

func scanPersonal(s scanner) (domain.PersonalBasecamp, error) {
	var (
		p              domain.PersonalBasecamp
		id, trip, user pgtype.UUID
		lat, lng       pgtype.Float8
	)

	err := s.Scan(&id, &trip, &user, &p.Name, &p.Address, &lat, &lng, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PersonalBasecamp{}, domain.ErrNotFound
		}
		return domain.PersonalBasecamp{}, err
	}

	p.ID = uuid.UUID(id.Bytes)
	p.TripID = uuid.UUID(trip.Bytes)
	p.UserID = uuid.UUID(user.Bytes)
	p.Coordinates = coordinatesFrom(lat, lng)
	return p, nil
}
