// Package basecamp keeps a client's view of trip basecamps in sync with the
// authoritative store.
//
// A Coordinator applies local edits optimistically to a Cache, confirms them
// with the store, and rolls back or adopts the store's value when the write
// fails or loses a conflict. The same Coordinator classifies push events from
// the store: an event caused by its own recent write is an echo and is applied
// silently, anything else is applied and reported as a change by another
// collaborator. PersonalCoordinator is the single-writer variant with no
// conflict or echo handling.
//
// Every cache mutation happens in a short critical section. Store calls are
// the only blocking points and are never made while holding a lock, so a new
// write may start while an earlier one is still waiting for its confirmation.
package basecamp

import (
	"context"

	"github.com/google/uuid"

	"github.com/pkordes/trip-basecamp/internal/domain"
)

// Store is the authoritative persistence for shared basecamps, seen from a client.
type Store interface {
	// GetShared returns the trip's current basecamp, or nil if it has none.
	GetShared(ctx context.Context, tripID uuid.UUID) (*domain.Basecamp, error)

	// SetShared conditionally writes the basecamp and returns the stored record.
	// It returns an error wrapping domain.ErrConflict when another writer's
	// change was accepted first.
	SetShared(ctx context.Context, tripID uuid.UUID, w domain.SharedWrite) (domain.Basecamp, error)

	// ClearShared conditionally removes the basecamp, with the same conflict
	// reporting as SetShared.
	ClearShared(ctx context.Context, tripID uuid.UUID, w domain.SharedWrite) error

	// SubscribeShared calls onChange whenever the trip's shared basecamp may
	// have changed. Delivery is at-most-once; events carry no payload.
	// onChange must not block.
	SubscribeShared(ctx context.Context, tripID uuid.UUID, onChange func()) (Subscription, error)
}

// PersonalStore is the authoritative persistence for personal basecamps.
// There is one writer per record, so no call reports a conflict.
type PersonalStore interface {
	// GetPersonal returns the member's basecamp, or nil if it has none.
	GetPersonal(ctx context.Context, tripID, userID uuid.UUID) (*domain.PersonalBasecamp, error)
	UpsertPersonal(ctx context.Context, p domain.PersonalBasecamp) (domain.PersonalBasecamp, error)
	DeletePersonal(ctx context.Context, id uuid.UUID) error
}

// Subscription is a live push subscription.
type Subscription interface {
	// Unsubscribe stops delivery. After it returns onChange is not called again.
	// It is safe to call more than once.
	Unsubscribe()
}

// SubscriptionFunc adapts a plain function to Subscription.
type SubscriptionFunc func()

// Unsubscribe calls f.
func (f SubscriptionFunc) Unsubscribe() { f() }
