// Package domain contains the core data types for the trip basecamp service.
// It is imported by every other internal package (repo, service, handler,
// basecamp, client) and depends only on uuid.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Trip is the top-level aggregate shared by a group of collaborators.
// A trip owns at most one shared basecamp and one personal basecamp per member.
type Trip struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"` // nil while the trip is open-ended
	Notes     string     `json:"notes,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
