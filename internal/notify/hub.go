// Package notify fans basecamp change events out to connected subscribers.
//
// Events carry no payload beyond the trip id. A subscriber that is slow to
// drain its channel misses intermediate events but always sees at least one
// event after the last change, which is all a client needs to refetch.
package notify

import (
	"sync"

	"github.com/google/uuid"
)

// Hub is a per-trip registry of change subscribers. The zero value is not
// usable; call NewHub.
type Hub struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uuid.UUID]map[uint64]chan struct{}
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uuid.UUID]map[uint64]chan struct{})}
}

// Subscribe registers for change events on tripID. The returned channel has
// a buffer of one and is closed by cancel, which is safe to call more than once.
func (h *Hub) Subscribe(tripID uuid.UUID) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.subs[tripID] == nil {
		h.subs[tripID] = make(map[uint64]chan struct{})
	}
	h.subs[tripID][id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[tripID], id)
			if len(h.subs[tripID]) == 0 {
				delete(h.subs, tripID)
			}
			close(ch)
		})
	}
	return ch, cancel
}

// Publish signals every subscriber of tripID without blocking. A subscriber
// that already has an undelivered event keeps just that one.
func (h *Hub) Publish(tripID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[tripID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Subscribers returns the number of live subscriptions for tripID.
func (h *Hub) Subscribers(tripID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[tripID])
}
