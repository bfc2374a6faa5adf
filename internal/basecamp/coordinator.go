package basecamp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/trip-basecamp/internal/domain"
)

// DefaultDebounceWindow is how long after a local write a remote event with
// the same address is still treated as that write's echo. It has to cover the
// save, fan-out and receive round trip.
const DefaultDebounceWindow = 2 * time.Second

// WriteState is the terminal state of one optimistic write.
type WriteState int

const (
	// StateRejected means the input was invalid and nothing was sent.
	StateRejected WriteState = iota + 1
	// StateCommitted means the store accepted the write.
	StateCommitted
	// StateRolledBack means the write failed and the cache was restored.
	StateRolledBack
	// StateConflictResolved means another writer won and the cache now holds
	// the store's value.
	StateConflictResolved
)

func (s WriteState) String() string {
	switch s {
	case StateRejected:
		return "rejected"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled_back"
	case StateConflictResolved:
		return "conflict_resolved"
	}
	return "unknown"
}

// Result describes how a write ended. For a committed write Record is the
// store's copy of it; otherwise it is what the cache holds after the write
// (nil for a cleared or absent basecamp).
type Result[T any] struct {
	State  WriteState
	Record *T
}

// Conflict reports whether the write lost to another collaborator.
func (r Result[T]) Conflict() bool { return r.State == StateConflictResolved }

// Options configures a Coordinator. Zero values select the defaults.
type Options struct {
	// UserID identifies the local user on writes.
	UserID uuid.UUID
	// ClientID identifies this session to the store; defaults to a random UUID.
	ClientID string
	// DebounceWindow defaults to DefaultDebounceWindow.
	DebounceWindow time.Duration
	// Clock defaults to SystemClock.
	Clock Clock
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Notify receives changes made by other collaborators. It is called
	// outside any lock and must not block for long.
	Notify func(Notification)
}

// Coordinator runs optimistic writes of shared basecamps and classifies the
// store's push events as echoes or remote edits. One Coordinator should own
// a given Cache's shared slots.
type Coordinator struct {
	store    Store
	cache    *Cache
	userID   uuid.UUID
	clientID string
	window   time.Duration
	clock    Clock
	log      *slog.Logger
	notify   func(Notification)

	// mu makes the snapshot, optimistic apply and fingerprint update of a write
	// (and the classify-and-apply of a remote event) a single step.
	mu      sync.Mutex
	seq     uint64
	pending map[uuid.UUID]fingerprint
}

// fingerprint identifies the most recent local write of a trip's basecamp.
// A clear is recorded with cleared set and an empty address. base is the
// version the write was made against, when there was one.
type fingerprint struct {
	address   string
	cleared   bool
	base      int64
	hasBase   bool
	committed bool
	at        time.Time
	seq       uint64
}

// NewCoordinator returns a Coordinator writing through store into cache.
func NewCoordinator(store Store, cache *Cache, opts Options) *Coordinator {
	if opts.ClientID == "" {
		opts.ClientID = uuid.NewString()
	}
	if opts.DebounceWindow <= 0 {
		opts.DebounceWindow = DefaultDebounceWindow
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Coordinator{
		store:    store,
		cache:    cache,
		userID:   opts.UserID,
		clientID: opts.ClientID,
		window:   opts.DebounceWindow,
		clock:    opts.Clock,
		log:      opts.Logger.With("component", "basecamp.coordinator", "client_id", opts.ClientID),
		notify:   opts.Notify,
		pending:  make(map[uuid.UUID]fingerprint),
	}
}

// ClientID returns the session id sent with every write.
func (c *Coordinator) ClientID() string { return c.clientID }

// Cache returns the cache this Coordinator writes to.
func (c *Coordinator) Cache() *Cache { return c.cache }

// SetShared replaces the trip's shared basecamp.
//
// The new value is visible in the cache before the store is called. On a
// plain failure the previous value is restored and the error wraps
// ErrWriteFailed. On a conflict the cache takes the store's current value and
// the error is a *ConflictError. An empty address is rejected with
// domain.ErrValidation without contacting the store.
func (c *Coordinator) SetShared(ctx context.Context, tripID uuid.UUID, fields domain.BasecampFields) (Result[domain.Basecamp], error) {
	fields = fields.Normalize()
	if err := fields.Validate(); err != nil {
		return Result[domain.Basecamp]{State: StateRejected}, fmt.Errorf("basecamp.Coordinator.SetShared: %w", err)
	}

	optimistic := &domain.Basecamp{
		TripID:      tripID,
		Name:        fields.Name,
		Address:     fields.Address,
		Coordinates: fields.Coordinates,
		UpdatedBy:   c.userID,
	}
	previous, rev, fp := c.begin(tripID, optimistic, fingerprint{address: fields.Address})

	stored, err := c.store.SetShared(ctx, tripID, c.sharedWrite(fields, previous))
	if err != nil {
		return c.recover(ctx, tripID, "SetShared", rev, fp, previous, err)
	}

	c.mu.Lock()
	c.cache.reconcileShared(tripID, rev, &stored)
	// Track the store's normalized address so the echo still matches.
	if cur, ok := c.pending[tripID]; ok && cur.seq == fp.seq {
		cur.address = stored.Address
		cur.committed = true
		c.pending[tripID] = cur
	}
	c.mu.Unlock()

	c.log.DebugContext(ctx, "shared basecamp committed", "trip_id", tripID, "version", stored.Version)
	return Result[domain.Basecamp]{State: StateCommitted, Record: &stored}, nil
}

// ClearShared removes the trip's shared basecamp with the same optimistic,
// rollback and conflict behaviour as SetShared.
func (c *Coordinator) ClearShared(ctx context.Context, tripID uuid.UUID) (Result[domain.Basecamp], error) {
	previous, rev, fp := c.begin(tripID, nil, fingerprint{cleared: true})

	if err := c.store.ClearShared(ctx, tripID, c.sharedWrite(domain.BasecampFields{}, previous)); err != nil {
		return c.recover(ctx, tripID, "ClearShared", rev, fp, previous, err)
	}

	c.log.DebugContext(ctx, "shared basecamp cleared", "trip_id", tripID)
	return Result[domain.Basecamp]{State: StateCommitted}, nil
}

// Refresh loads the store's current value into the cache without notifying.
// Call it after (re)connecting, since missed push events are not replayed.
func (c *Coordinator) Refresh(ctx context.Context, tripID uuid.UUID) (*domain.Basecamp, error) {
	current, err := c.store.GetShared(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("basecamp.Coordinator.Refresh: %w", err)
	}
	c.mu.Lock()
	c.cache.swapShared(tripID, current)
	c.mu.Unlock()
	return current, nil
}

// begin applies the optimistic value and records the fingerprint in one
// critical section, before any store call.
func (c *Coordinator) begin(tripID uuid.UUID, optimistic *domain.Basecamp, fp fingerprint) (*domain.Basecamp, uint64, fingerprint) {
	c.mu.Lock()
	defer c.mu.Unlock()

	previous := c.cache.Shared(tripID)
	if previous != nil {
		fp.base, fp.hasBase = previous.Version, true
		if optimistic != nil {
			optimistic.Version = previous.Version
		}
	}
	_, rev := c.cache.swapShared(tripID, optimistic)

	c.seq++
	fp.at = c.clock.Now()
	fp.seq = c.seq
	c.pending[tripID] = fp
	return previous, rev, fp
}

func (c *Coordinator) sharedWrite(fields domain.BasecampFields, previous *domain.Basecamp) domain.SharedWrite {
	w := domain.SharedWrite{Fields: fields, UserID: c.userID, ClientID: c.clientID}
	if previous != nil {
		w.BaseVersion = previous.Version
	}
	return w
}

// recover handles a failed store write: conflicts adopt the store's value,
// everything else rolls back to previous. Either way the write's own
// fingerprint is dropped, and a newer value in the cache is left alone.
func (c *Coordinator) recover(
	ctx context.Context,
	tripID uuid.UUID,
	op string,
	rev uint64,
	fp fingerprint,
	previous *domain.Basecamp,
	cause error,
) (Result[domain.Basecamp], error) {
	c.mu.Lock()
	if cur, ok := c.pending[tripID]; ok && cur.seq == fp.seq {
		delete(c.pending, tripID)
	}
	c.mu.Unlock()

	if !errors.Is(cause, domain.ErrConflict) {
		c.mu.Lock()
		c.cache.putSharedIf(tripID, rev, previous)
		shown := c.cache.Shared(tripID)
		c.mu.Unlock()

		c.log.WarnContext(ctx, "shared basecamp write rolled back", "trip_id", tripID, "op", op, "error", cause)
		return Result[domain.Basecamp]{State: StateRolledBack, Record: shown},
			fmt.Errorf("basecamp.Coordinator.%s: %w: %w", op, ErrWriteFailed, cause)
	}

	authoritative, err := c.store.GetShared(ctx, tripID)

	var shown *domain.Basecamp
	c.mu.Lock()
	if err != nil {
		// The conflict stands but the winner is unknown; restore what was
		// shown before rather than keep a rejected value.
		authoritative = nil
		c.cache.putSharedIf(tripID, rev, previous)
		shown = c.cache.Shared(tripID)
	} else {
		shown = c.cache.reconcileShared(tripID, rev, authoritative)
	}
	c.mu.Unlock()

	if err != nil {
		c.log.WarnContext(ctx, "fetch after conflict failed", "trip_id", tripID, "op", op, "error", err)
	}
	c.log.InfoContext(ctx, "shared basecamp write lost to another collaborator", "trip_id", tripID, "op", op)
	return Result[domain.Basecamp]{State: StateConflictResolved, Record: shown},
		&ConflictError{TripID: tripID, Authoritative: cloneBasecamp(authoritative)}
}
