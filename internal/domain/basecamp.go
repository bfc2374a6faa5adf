package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Coordinates is an optional map pin for a basecamp.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Basecamp is the shared meeting point of a trip. Any collaborator may edit it;
// writes are last-write-wins and never merged.
//
// Address is the identity of the record for comparison purposes. Coordinates
// may be nil: a basecamp can be a text-only reference with no map pin.
// Version and UpdatedAt are assigned by the store on every accepted write.
type Basecamp struct {
	TripID      uuid.UUID    `json:"trip_id"`
	Name        string       `json:"name,omitempty"`
	Address     string       `json:"address"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	Version     int64        `json:"version"`
	UpdatedBy   uuid.UUID    `json:"updated_by"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// PersonalBasecamp is a member's private basecamp for a trip.
// Only that member writes it, so no conflict can occur.
type PersonalBasecamp struct {
	ID          uuid.UUID    `json:"id"`
	TripID      uuid.UUID    `json:"trip_id"`
	UserID      uuid.UUID    `json:"user_id"`
	Name        string       `json:"name,omitempty"`
	Address     string       `json:"address"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// BasecampFields is the caller-editable part of a basecamp.
type BasecampFields struct {
	Name        string       `json:"name,omitempty"`
	Address     string       `json:"address"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// Normalize returns a copy with surrounding whitespace trimmed from Name and Address.
func (f BasecampFields) Normalize() BasecampFields {
	f.Name = strings.TrimSpace(f.Name)
	f.Address = strings.TrimSpace(f.Address)
	if f.Coordinates != nil {
		c := *f.Coordinates
		f.Coordinates = &c
	}
	return f
}

// Validate enforces the basecamp business rules:
//   - Address must be non-empty (whitespace-only is rejected).
//   - Coordinates, when present, must be a valid lat/lng pair.
func (f BasecampFields) Validate() error {
	if strings.TrimSpace(f.Address) == "" {
		return fmt.Errorf("%w: address is required", ErrValidation)
	}
	if c := f.Coordinates; c != nil {
		if c.Lat < -90 || c.Lat > 90 {
			return fmt.Errorf("%w: latitude must be between -90 and 90", ErrValidation)
		}
		if c.Lng < -180 || c.Lng > 180 {
			return fmt.Errorf("%w: longitude must be between -180 and 180", ErrValidation)
		}
	}
	return nil
}

// SharedWrite is a conditional write (or clear) of a trip's shared basecamp.
//
// The store accepts it when no basecamp row exists yet, when the stored
// version equals BaseVersion, or when the stored row was last written by the
// same ClientID. Otherwise it reports ErrConflict.
type SharedWrite struct {
	Fields      BasecampFields
	BaseVersion int64
	UserID      uuid.UUID
	ClientID    string
}

// Fields returns the editable part of the basecamp.
func (b Basecamp) Fields() BasecampFields {
	return BasecampFields{Name: b.Name, Address: b.Address, Coordinates: b.Coordinates}
}

// Fields returns the editable part of the personal basecamp.
func (p PersonalBasecamp) Fields() BasecampFields {
	return BasecampFields{Name: p.Name, Address: p.Address, Coordinates: p.Coordinates}
}
