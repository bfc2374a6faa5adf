package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/trip-basecamp/internal/domain"
	"github.com/pkordes/trip-basecamp/internal/repo"
	"github.com/pkordes/trip-basecamp/internal/service"
)

// mockTripRepo is a hand-written test double for repo.TripRepo.
// Each method is a function field; set only the ones a test needs.
type mockTripRepo struct {
	create    func(ctx context.Context, trip domain.Trip) (domain.Trip, error)
	getByID   func(ctx context.Context, id uuid.UUID) (domain.Trip, error)
	listPaged func(ctx context.Context, p domain.PaginationParams) ([]domain.Trip, int64, error)
	update    func(ctx context.Context, trip domain.Trip) (domain.Trip, error)
	delete    func(ctx context.Context, id uuid.UUID) error
}

func (m *mockTripRepo) Create(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	return m.create(ctx, trip)
}
func (m *mockTripRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	return m.getByID(ctx, id)
}
func (m *mockTripRepo) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Trip, int64, error) {
	return m.listPaged(ctx, p)
}
func (m *mockTripRepo) Update(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	return m.update(ctx, trip)
}
func (m *mockTripRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.delete(ctx, id)
}

var _ repo.TripRepo = (*mockTripRepo)(nil)

// ---- helpers ---------------------------------------------------------------

func validTrip() domain.Trip {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	return domain.Trip{
		Name:      "Paris Getaway",
		StartDate: start,
		EndDate:   &end,
	}
}

// passthroughTripRepo returns whatever it receives, for tests that only care
// about validation.
func passthroughTripRepo() *mockTripRepo {
	return &mockTripRepo{
		create: func(_ context.Context, t domain.Trip) (domain.Trip, error) { return t, nil },
		update: func(_ context.Context, t domain.Trip) (domain.Trip, error) { return t, nil },
	}
}

// ---- Create tests ----------------------------------------------------------

func TestTripService_Create_Valid(t *testing.T) {
	svc := service.NewTripService(passthroughTripRepo())

	trip := validTrip()
	trip.Name = "  Paris Getaway  "
	got, err := svc.Create(context.Background(), trip)

	require.NoError(t, err)
	assert.Equal(t, "Paris Getaway", got.Name, "name should be trimmed")
}

func TestTripService_Create_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.Trip)
	}{
		{"whitespace name", func(tr *domain.Trip) { tr.Name = "   " }},
		{"missing start date", func(tr *domain.Trip) { tr.StartDate = time.Time{} }},
		{"end before start", func(tr *domain.Trip) {
			bad := tr.StartDate.AddDate(0, 0, -1)
			tr.EndDate = &bad
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := service.NewTripService(passthroughTripRepo())
			trip := validTrip()
			tc.mutate(&trip)

			_, err := svc.Create(context.Background(), trip)

			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestTripService_Create_SameDayAndOpenEnded(t *testing.T) {
	svc := service.NewTripService(passthroughTripRepo())

	sameDay := validTrip()
	same := sameDay.StartDate
	sameDay.EndDate = &same
	_, err := svc.Create(context.Background(), sameDay)
	assert.NoError(t, err)

	open := validTrip()
	open.EndDate = nil
	_, err = svc.Create(context.Background(), open)
	assert.NoError(t, err)
}

func TestTripService_Create_RepoError(t *testing.T) {
	repoErr := errors.New("db exploded")
	r := &mockTripRepo{
		create: func(_ context.Context, _ domain.Trip) (domain.Trip, error) {
			return domain.Trip{}, repoErr
		},
	}
	svc := service.NewTripService(r)

	_, err := svc.Create(context.Background(), validTrip())

	assert.ErrorIs(t, err, repoErr)
}

// ---- Read tests ------------------------------------------------------------

func TestTripService_GetByID_NotFound(t *testing.T) {
	r := &mockTripRepo{
		getByID: func(_ context.Context, _ uuid.UUID) (domain.Trip, error) {
			return domain.Trip{}, domain.ErrNotFound
		},
	}
	svc := service.NewTripService(r)

	_, err := svc.GetByID(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTripService_ListPaged_Empty(t *testing.T) {
	var gotParams domain.PaginationParams
	r := &mockTripRepo{
		listPaged: func(_ context.Context, p domain.PaginationParams) ([]domain.Trip, int64, error) {
			gotParams = p
			return nil, 0, nil
		},
	}
	svc := service.NewTripService(r)

	got, total, err := svc.ListPaged(context.Background(), domain.PaginationParams{Page: 2, Limit: 5})

	require.NoError(t, err)
	assert.NotNil(t, got, "callers range over the result")
	assert.Empty(t, got)
	assert.Zero(t, total)
	assert.Equal(t, domain.PaginationParams{Page: 2, Limit: 5}, gotParams)
}

// ---- Update / Delete tests -------------------------------------------------

func TestTripService_Update_EndDateBeforeStartDate(t *testing.T) {
	svc := service.NewTripService(passthroughTripRepo())

	trip := validTrip()
	trip.ID = uuid.New()
	bad := trip.StartDate.AddDate(0, 0, -1)
	trip.EndDate = &bad

	_, err := svc.Update(context.Background(), trip)

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTripService_Delete_NotFound(t *testing.T) {
	r := &mockTripRepo{
		delete: func(_ context.Context, _ uuid.UUID) error { return domain.ErrNotFound },
	}
	svc := service.NewTripService(r)

	err := svc.Delete(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
