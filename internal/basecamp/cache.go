package basecamp

import (
	"sync"

	"github.com/google/uuid"

	"github.com/pkordes/trip-basecamp/internal/domain"
)

// Cache holds the basecamp values currently shown to the user. It has no
// durability of its own; the store owns the authoritative copies.
//
// Every mutation stamps the slot with a fresh revision. Writers that need to
// undo their own change later (rollback, reconciliation) pass the revision
// they got back, and the undo only happens if nothing replaced their value
// in the meantime.
type Cache struct {
	mu       sync.RWMutex
	rev      uint64
	shared   map[uuid.UUID]slot[domain.Basecamp]
	personal map[personalKey]slot[domain.PersonalBasecamp]
}

type personalKey struct {
	tripID uuid.UUID
	userID uuid.UUID
}

type slot[T any] struct {
	value *T
	rev   uint64
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{
		shared:   make(map[uuid.UUID]slot[domain.Basecamp]),
		personal: make(map[personalKey]slot[domain.PersonalBasecamp]),
	}
}

// Shared returns a copy of the trip's shared basecamp, or nil if there is none.
func (c *Cache) Shared(tripID uuid.UUID) *domain.Basecamp {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneBasecamp(c.shared[tripID].value)
}

// Personal returns a copy of the member's personal basecamp, or nil.
func (c *Cache) Personal(tripID, userID uuid.UUID) *domain.PersonalBasecamp {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return clonePersonal(c.personal[personalKey{tripID, userID}].value)
}

// swapShared stores v and returns the value it replaced and the new revision.
func (c *Cache) swapShared(tripID uuid.UUID, v *domain.Basecamp) (*domain.Basecamp, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return swap(c, c.shared, tripID, cloneBasecamp(v))
}

// putSharedIf stores v only if the slot still carries revision rev.
func (c *Cache) putSharedIf(tripID uuid.UUID, rev uint64, v *domain.Basecamp) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return putIf(c, c.shared, tripID, rev, cloneBasecamp(v))
}

// reconcileShared stores the store-confirmed record v if the slot still
// carries rev, or if v is newer than what the slot holds. It returns a copy
// of the slot's value afterwards.
func (c *Cache) reconcileShared(tripID uuid.UUID, rev uint64, v *domain.Basecamp) *domain.Basecamp {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := c.shared[tripID]
	if cur.rev == rev || (v != nil && (cur.value == nil || cur.value.Version < v.Version)) {
		swap(c, c.shared, tripID, cloneBasecamp(v))
	}
	return cloneBasecamp(c.shared[tripID].value)
}

// applyPersonal stores v in place of the member's current record, carrying
// over its ID and CreatedAt. It returns the replaced value, what was stored
// and the new revision.
func (c *Cache) applyPersonal(tripID, userID uuid.UUID, v domain.PersonalBasecamp) (*domain.PersonalBasecamp, domain.PersonalBasecamp, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := personalKey{tripID, userID}
	if cur := c.personal[k].value; cur != nil {
		v.ID = cur.ID
		v.CreatedAt = cur.CreatedAt
	}
	prev, rev := swap(c, c.personal, k, clonePersonal(&v))
	return prev, *clonePersonal(&v), rev
}

func (c *Cache) swapPersonal(tripID, userID uuid.UUID, v *domain.PersonalBasecamp) (*domain.PersonalBasecamp, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return swap(c, c.personal, personalKey{tripID, userID}, clonePersonal(v))
}

func (c *Cache) putPersonalIf(tripID, userID uuid.UUID, rev uint64, v *domain.PersonalBasecamp) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return putIf(c, c.personal, personalKey{tripID, userID}, rev, clonePersonal(v))
}

// swap and putIf must be called with c.mu held.
func swap[K comparable, T any](c *Cache, m map[K]slot[T], k K, v *T) (*T, uint64) {
	prev := m[k].value
	c.rev++
	m[k] = slot[T]{value: v, rev: c.rev}
	return prev, c.rev
}

func putIf[K comparable, T any](c *Cache, m map[K]slot[T], k K, rev uint64, v *T) bool {
	if m[k].rev != rev {
		return false
	}
	c.rev++
	m[k] = slot[T]{value: v, rev: c.rev}
	return true
}

func cloneBasecamp(b *domain.Basecamp) *domain.Basecamp {
	if b == nil {
		return nil
	}
	out := *b
	out.Coordinates = cloneCoordinates(b.Coordinates)
	return &out
}

func clonePersonal(p *domain.PersonalBasecamp) *domain.PersonalBasecamp {
	if p == nil {
		return nil
	}
	out := *p
	out.Coordinates = cloneCoordinates(p.Coordinates)
	return &out
}

func cloneCoordinates(c *domain.Coordinates) *domain.Coordinates {
	if c == nil {
		return nil
	}
	out := *c
	return &out
}
