package reservation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned, wrapped with the offending id, when a movie,
// cinema, showtime or booking cannot be resolved.  Handlers translate it
// into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ValidationError rejects a request before any state is touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// SeatConflictError reports requested seats that are already held by an
// active booking of the same showtime.
type SeatConflictError struct {
	ShowtimeID string
	Seats      []string
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seats already booked for showtime %s: %s", e.ShowtimeID, strings.Join(e.Seats, ", "))
}

// PersistenceError means a mutation was committed in memory but could not
// be written to the backing store.  It accompanies a successful result and
// is never a reason to roll the mutation back.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist after %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}
