package event

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrMalformedEvent = errors.New("malformed event")
	ErrMissingField   = errors.New("missing required field")
	ErrInvalidField   = errors.New("invalid field")
	ErrSyntheticKind  = errors.New("synthetic kind in raw record")
)

// MalformedEventError reports a record that cannot be turned into an Event.
// It is fatal for the stream it belongs to.
type MalformedEventError struct {
	Index     int
	Timestamp int64
	Field     string
	Err       error
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("malformed event at index %d (timestamp %d): field %q: %v", e.Index, e.Timestamp, e.Field, e.Err)
}

// Unwrap exposes the cause.
func (e *MalformedEventError) Unwrap() error { return e.Err }

// Is matches ErrMalformedEvent so callers can test the category.
func (e *MalformedEventError) Is(target error) bool { return target == ErrMalformedEvent }
