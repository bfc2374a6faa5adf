package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when input fails business rule validation
// (e.g. empty basecamp address, end date before start date).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrConflict is returned when a conditional basecamp write is rejected
// because another writer's change was accepted first.
// Handlers should map this to HTTP 409 Conflict.
var ErrConflict = errors.New("modified by another collaborator")
