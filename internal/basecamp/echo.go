package basecamp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/trip-basecamp/internal/domain"
)

// RemoteOutcome is what HandleRemoteEvent did with one push event.
type RemoteOutcome int

const (
	// RemoteIgnored means the authoritative value could not be fetched, or
	// was no newer than what this client already shows or is writing over.
	// The cache was not touched.
	RemoteIgnored RemoteOutcome = iota + 1
	// RemoteSuppressedAsEcho means the event confirmed this client's own
	// recent write. The cache was updated, nobody was notified.
	RemoteSuppressedAsEcho
	// RemoteApplied means another collaborator changed the basecamp. The
	// cache was updated and one Notification was sent.
	RemoteApplied
)

// Notification tells the user another collaborator changed the basecamp.
// Basecamp is nil when it was cleared.
type Notification struct {
	TripID   uuid.UUID
	Basecamp *domain.Basecamp
	Message  string
}

// HandleRemoteEvent reacts to one change event for tripID.
//
// It fetches the authoritative value and always applies it to the cache. The
// event is an echo when this client's pending fingerprint for the trip has
// the same address (or is a clear and the basecamp is gone) and is younger
// than the debounce window; a matching fingerprint is consumed. Anything else
// produces exactly one Notification.
//
// Two collaborators setting the same address within the window are
// indistinguishable here, and the second one's change is treated as an echo.
func (c *Coordinator) HandleRemoteEvent(ctx context.Context, tripID uuid.UUID) RemoteOutcome {
	authoritative, err := c.store.GetShared(ctx, tripID)
	if err != nil {
		c.log.WarnContext(ctx, "remote basecamp event ignored: fetch failed", "trip_id", tripID, "error", err)
		return RemoteIgnored
	}

	c.mu.Lock()
	if c.isStale(tripID, authoritative) {
		c.mu.Unlock()
		c.log.DebugContext(ctx, "stale basecamp event ignored", "trip_id", tripID)
		return RemoteIgnored
	}
	echo := c.consumeEcho(tripID, authoritative, c.clock.Now())
	c.cache.swapShared(tripID, authoritative)
	c.mu.Unlock()

	if echo {
		c.log.DebugContext(ctx, "remote basecamp event suppressed as echo", "trip_id", tripID)
		return RemoteSuppressedAsEcho
	}

	n := Notification{TripID: tripID, Basecamp: cloneBasecamp(authoritative)}
	if authoritative == nil {
		n.Message = "Basecamp cleared by another member"
	} else {
		n.Message = fmt.Sprintf("Basecamp updated by another member: %s", authoritative.Address)
	}
	c.log.InfoContext(ctx, "basecamp changed by another member", "trip_id", tripID, "message", n.Message)
	if c.notify != nil {
		c.notify(n)
	}
	return RemoteApplied
}

// isStale reports whether authoritative predates what the cache shows or the
// base of the trip's pending write. Such a fetch raced with a newer local
// write and must not replace it. It must be called with c.mu held.
func (c *Coordinator) isStale(tripID uuid.UUID, authoritative *domain.Basecamp) bool {
	fp, pending := c.pending[tripID]
	if authoritative == nil {
		// Still nothing where a write from nothing is in flight.
		return pending && !fp.committed && !fp.hasBase && !fp.cleared
	}
	if cur := c.cache.Shared(tripID); cur != nil && authoritative.Version < cur.Version {
		return true
	}
	return pending && fp.hasBase && authoritative.Version <= fp.base
}

// consumeEcho must be called with c.mu held. Expired fingerprints are dropped
// whether or not they match.
func (c *Coordinator) consumeEcho(tripID uuid.UUID, authoritative *domain.Basecamp, now time.Time) bool {
	fp, ok := c.pending[tripID]
	if !ok {
		return false
	}
	if now.Sub(fp.at) >= c.window {
		delete(c.pending, tripID)
		return false
	}

	var match bool
	if authoritative == nil {
		match = fp.cleared
	} else {
		match = !fp.cleared && fp.address == authoritative.Address
	}
	if match {
		delete(c.pending, tripID)
	}
	return match
}

// Listener feeds one trip's push events into its Coordinator until closed.
//
// Events are coalesced: while one is being handled at most one more is
// queued, since every event triggers a full fetch of the current value.
type Listener struct {
	coord  *Coordinator
	tripID uuid.UUID
	sub    Subscription
	events chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// Listen subscribes to the trip's push stream. The returned Listener must be
// closed when the trip view goes away.
func (c *Coordinator) Listen(ctx context.Context, tripID uuid.UUID) (*Listener, error) {
	ctx, cancel := context.WithCancel(ctx)
	l := &Listener{
		coord:  c,
		tripID: tripID,
		events: make(chan struct{}, 1),
		cancel: cancel,
	}

	sub, err := c.store.SubscribeShared(ctx, tripID, l.signal)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("basecamp.Coordinator.Listen: %w", err)
	}
	l.sub = sub

	l.wg.Add(1)
	go l.run(ctx)
	return l, nil
}

func (l *Listener) signal() {
	select {
	case l.events <- struct{}{}:
	default:
	}
}

func (l *Listener) run(ctx context.Context) {
	defer l.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.events:
			l.coord.HandleRemoteEvent(ctx, l.tripID)
		}
	}
}

// Close unsubscribes and waits for an in-progress event to finish.
// It is safe to call more than once.
func (l *Listener) Close() {
	l.once.Do(func() {
		l.sub.Unsubscribe()
		l.cancel()
		l.wg.Wait()
	})
}
