package basecamp

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/pkordes/trip-basecamp/internal/domain"
)

// ErrWriteFailed marks a write the store did not accept for a reason other
// than a conflict (network or server error). The cache has been rolled back.
var ErrWriteFailed = errors.New("basecamp write failed")

// ConflictError reports that another collaborator's change won. The cache now
// holds Authoritative unless a newer version reached it first. Authoritative
// is nil if the basecamp was cleared or could not be fetched.
type ConflictError struct {
	TripID        uuid.UUID
	Authoritative *domain.Basecamp
}

func (e *ConflictError) Error() string {
	if e.Authoritative == nil {
		return fmt.Sprintf("basecamp for trip %s was modified by another collaborator", e.TripID)
	}
	return fmt.Sprintf("basecamp for trip %s was modified by another collaborator: now %q",
		e.TripID, e.Authoritative.Address)
}

// Unwrap lets errors.Is(err, domain.ErrConflict) match.
func (e *ConflictError) Unwrap() error { return domain.ErrConflict }
