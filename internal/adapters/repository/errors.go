package repository

import "errors"

// Sentinel kinds for report store errors.
var (
	ErrNotFound      = errors.New("report not found")
	ErrInvalidLimit  = errors.New("invalid report limit")
	ErrMissingID     = errors.New("report id is required")
	ErrUnknownDriver = errors.New("unknown store driver")
)
