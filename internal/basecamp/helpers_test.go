package basecamp_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/trip-basecamp/internal/basecamp"
	"github.com/pkordes/trip-basecamp/internal/domain"
)

// fakeStore is a hand-written test double for basecamp.Store.
// Each method is a function field; an unset field panics if reached, which
// doubles as an assertion that the call was not made.
type fakeStore struct {
	getShared   func(ctx context.Context, tripID uuid.UUID) (*domain.Basecamp, error)
	setShared   func(ctx context.Context, tripID uuid.UUID, w domain.SharedWrite) (domain.Basecamp, error)
	clearShared func(ctx context.Context, tripID uuid.UUID, w domain.SharedWrite) error
	subscribe   func(ctx context.Context, tripID uuid.UUID, onChange func()) (basecamp.Subscription, error)
}

func (f *fakeStore) GetShared(ctx context.Context, tripID uuid.UUID) (*domain.Basecamp, error) {
	return f.getShared(ctx, tripID)
}
func (f *fakeStore) SetShared(ctx context.Context, tripID uuid.UUID, w domain.SharedWrite) (domain.Basecamp, error) {
	return f.setShared(ctx, tripID, w)
}
func (f *fakeStore) ClearShared(ctx context.Context, tripID uuid.UUID, w domain.SharedWrite) error {
	return f.clearShared(ctx, tripID, w)
}
func (f *fakeStore) SubscribeShared(ctx context.Context, tripID uuid.UUID, onChange func()) (basecamp.Subscription, error) {
	return f.subscribe(ctx, tripID, onChange)
}

var _ basecamp.Store = (*fakeStore)(nil)

type fakePersonalStore struct {
	get    func(ctx context.Context, tripID, userID uuid.UUID) (*domain.PersonalBasecamp, error)
	upsert func(ctx context.Context, p domain.PersonalBasecamp) (domain.PersonalBasecamp, error)
	delete func(ctx context.Context, id uuid.UUID) error
}

func (f *fakePersonalStore) GetPersonal(ctx context.Context, tripID, userID uuid.UUID) (*domain.PersonalBasecamp, error) {
	return f.get(ctx, tripID, userID)
}
func (f *fakePersonalStore) UpsertPersonal(ctx context.Context, p domain.PersonalBasecamp) (domain.PersonalBasecamp, error) {
	return f.upsert(ctx, p)
}
func (f *fakePersonalStore) DeletePersonal(ctx context.Context, id uuid.UUID) error {
	return f.delete(ctx, id)
}

var _ basecamp.PersonalStore = (*fakePersonalStore)(nil)

// fakeClock only moves when the test advances it.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// notifications records every Notification delivered to a Coordinator.
type notifications struct {
	mu   sync.Mutex
	list []basecamp.Notification
	ch   chan basecamp.Notification
}

func newNotifications() *notifications {
	return &notifications{ch: make(chan basecamp.Notification, 16)}
}

func (n *notifications) record(note basecamp.Notification) {
	n.mu.Lock()
	n.list = append(n.list, note)
	n.mu.Unlock()
	n.ch <- note
}

func (n *notifications) all() []basecamp.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]basecamp.Notification(nil), n.list...)
}

type harness struct {
	coord  *basecamp.Coordinator
	cache  *basecamp.Cache
	clock  *fakeClock
	notes  *notifications
	tripID uuid.UUID
	userID uuid.UUID
}

func newHarness(t *testing.T, store basecamp.Store) *harness {
	t.Helper()
	h := &harness{
		cache:  basecamp.NewCache(),
		clock:  newFakeClock(),
		notes:  newNotifications(),
		tripID: uuid.New(),
		userID: uuid.New(),
	}
	h.coord = basecamp.NewCoordinator(store, h.cache, basecamp.Options{
		UserID:         h.userID,
		ClientID:       "client-under-test",
		DebounceWindow: basecamp.DefaultDebounceWindow,
		Clock:          h.clock,
		Logger:         discardLogger(),
		Notify:         h.notes.record,
	})
	return h
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func record(tripID uuid.UUID, address string, version int64) *domain.Basecamp {
	return &domain.Basecamp{TripID: tripID, Address: address, Version: version}
}

// stored turns an accepted write into what the store would return.
func stored(tripID uuid.UUID, w domain.SharedWrite, version int64) domain.Basecamp {
	return domain.Basecamp{
		TripID:      tripID,
		Name:        w.Fields.Name,
		Address:     w.Fields.Address,
		Coordinates: w.Fields.Coordinates,
		Version:     version,
		UpdatedBy:   w.UserID,
	}
}

// seed puts an initial authoritative value into the harness cache.
func (h *harness) seed(t *testing.T, b *domain.Basecamp) {
	t.Helper()
	store := &fakeStore{getShared: func(context.Context, uuid.UUID) (*domain.Basecamp, error) { return b, nil }}
	seeder := basecamp.NewCoordinator(store, h.cache, basecamp.Options{Logger: discardLogger()})
	if _, err := seeder.Refresh(context.Background(), h.tripID); err != nil {
		t.Fatalf("seed: %v", err)
	}
}
