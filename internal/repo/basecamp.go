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

// pgForeignKeyViolation is the SQLSTATE raised when the parent trip is missing.
const pgForeignKeyViolation = "23503"

// BasecampRepo persists the single shared basecamp of each trip.
//
// Writes are conditional. A write is accepted when no row exists, when the
// stored version equals the writer's base version, when the stored row is a
// cleared tombstone and the writer saw no basecamp (base version 0), or when
// the stored row was last written by the same client session. Anything else
// is reported as domain.ErrConflict.
type BasecampRepo interface {
	// Get returns the current basecamp of a trip.
	// Returns domain.ErrNotFound if the trip has none or it was cleared.
	Get(ctx context.Context, tripID uuid.UUID) (domain.Basecamp, error)

	// Set conditionally upserts the basecamp and returns the stored record.
	// Returns domain.ErrNotFound if the trip does not exist.
	Set(ctx context.Context, tripID uuid.UUID, w domain.SharedWrite) (domain.Basecamp, error)

	// Clear conditionally replaces the basecamp with a tombstone.
	// Clearing a trip with no basecamp is a no-op.
	Clear(ctx context.Context, tripID uuid.UUID, w domain.SharedWrite) error
}

type pgBasecampRepo struct {
	db db
}

// NewBasecampRepo constructs a BasecampRepo backed by the provided db connection.
func NewBasecampRepo(db db) BasecampRepo {
	return &pgBasecampRepo{db: db}
}

const basecampColumns = `trip_id, name, address, lat, lng, version, updated_by, updated_at`

// acceptPredicate is shared by Set and Clear; it must reference the table by
// its full name because Set evaluates it inside ON CONFLICT.
const acceptPredicate = `(
	trip_basecamps.version = @base_version
	OR (trip_basecamps.address IS NULL AND @base_version = 0)
	OR (@writer_id <> '' AND trip_basecamps.writer_id = @writer_id)
)`

func (r *pgBasecampRepo) Get(ctx context.Context, tripID uuid.UUID) (domain.Basecamp, error) {
	const q = `
		SELECT ` + basecampColumns + `
		FROM trip_basecamps
		WHERE trip_id = @trip_id AND address IS NOT NULL`

	result, err := scanBasecamp(r.db.QueryRow(ctx, q, pgx.NamedArgs{"trip_id": tripID}))
	if err != nil {
		return domain.Basecamp{}, fmt.Errorf("repo.BasecampRepo.Get: %w", err)
	}
	return result, nil
}

func (r *pgBasecampRepo) Set(ctx context.Context, tripID uuid.UUID, w domain.SharedWrite) (domain.Basecamp, error) {
	const q = `
		INSERT INTO trip_basecamps (trip_id, name, address, lat, lng, version, writer_id, updated_by)
		VALUES (@trip_id, @name, @address, @lat, @lng, 1, @writer_id, @updated_by)
		ON CONFLICT (trip_id) DO UPDATE
		SET name       = EXCLUDED.name,
		    address    = EXCLUDED.address,
		    lat        = EXCLUDED.lat,
		    lng        = EXCLUDED.lng,
		    version    = trip_basecamps.version + 1,
		    writer_id  = EXCLUDED.writer_id,
		    updated_by = EXCLUDED.updated_by,
		    updated_at = now()
		WHERE ` + acceptPredicate + `
		RETURNING ` + basecampColumns

	lat, lng := coordinateArgs(w.Fields.Coordinates)
	args := pgx.NamedArgs{
		"trip_id":      tripID,
		"name":         w.Fields.Name,
		"address":      w.Fields.Address,
		"lat":          lat,
		"lng":          lng,
		"writer_id":    w.ClientID,
		"updated_by":   nullableUUID(w.UserID),
		"base_version": w.BaseVersion,
	}

	result, err := scanBasecamp(r.db.QueryRow(ctx, q, args))
	if err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.Is(err, domain.ErrNotFound):
			// The upsert hit an existing row and the predicate rejected it.
			return domain.Basecamp{}, fmt.Errorf("repo.BasecampRepo.Set: %w", domain.ErrConflict)
		case errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation:
			return domain.Basecamp{}, fmt.Errorf("repo.BasecampRepo.Set: trip %s: %w", tripID, domain.ErrNotFound)
		}
		return domain.Basecamp{}, fmt.Errorf("repo.BasecampRepo.Set: %w", err)
	}
	return result, nil
}

func (r *pgBasecampRepo) Clear(ctx context.Context, tripID uuid.UUID, w domain.SharedWrite) error {
	const q = `
		UPDATE trip_basecamps
		SET name       = '',
		    address    = NULL,
		    lat        = NULL,
		    lng        = NULL,
		    version    = version + 1,
		    writer_id  = @writer_id,
		    updated_by = @updated_by,
		    updated_at = now()
		WHERE trip_id = @trip_id
		  AND address IS NOT NULL
		  AND ` + acceptPredicate

	args := pgx.NamedArgs{
		"trip_id":      tripID,
		"writer_id":    w.ClientID,
		"updated_by":   nullableUUID(w.UserID),
		"base_version": w.BaseVersion,
	}

	tag, err := r.db.Exec(ctx, q, args)
	if err != nil {
		return fmt.Errorf("repo.BasecampRepo.Clear: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Nothing updated: either there is nothing to clear, or another writer's
	// basecamp is in place.
	var live bool
	err = r.db.QueryRow(ctx,
		`SELECT address IS NOT NULL FROM trip_basecamps WHERE trip_id = @trip_id`,
		pgx.NamedArgs{"trip_id": tripID},
	).Scan(&live)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil
	case err != nil:
		return fmt.Errorf("repo.BasecampRepo.Clear: check: %w", err)
	case live:
		return fmt.Errorf("repo.BasecampRepo.Clear: %w", domain.ErrConflict)
	}
	return nil
}

func scanBasecamp(s scanner) (domain.Basecamp, error) {
	var (
		b         domain.Basecamp
		tripID    pgtype.UUID
		address   pgtype.Text
		lat, lng  pgtype.Float8
		updatedBy pgtype.UUID
	)

	err := s.Scan(&tripID, &b.Name, &address, &lat, &lng, &b.Version, &updatedBy, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Basecamp{}, domain.ErrNotFound
		}
		return domain.Basecamp{}, err
	}

	b.TripID = uuid.UUID(tripID.Bytes)
	b.Address = address.String
	b.Coordinates = coordinatesFrom(lat, lng)
	if updatedBy.Valid {
		b.UpdatedBy = uuid.UUID(updatedBy.Bytes)
	}
	return b, nil
}

// coordinateArgs turns optional coordinates into nullable query arguments.
func coordinateArgs(c *domain.Coordinates) (lat, lng *float64) {
	if c == nil {
		return nil, nil
	}
	return &c.Lat, &c.Lng
}

// coordinatesFrom is the inverse of coordinateArgs. A half-set pair is
// treated as no pin.
func coordinatesFrom(lat, lng pgtype.Float8) *domain.Coordinates {
	if !lat.Valid || !lng.Valid {
		return nil
	}
	return &domain.Coordinates{Lat: lat.Float64, Lng: lng.Float64}
}

func nullableUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
