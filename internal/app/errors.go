package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrInvalidRequest = errors.New("invalid analysis request")
	ErrBackpressure   = errors.New("analysis queue full")
	ErrStopped        = errors.New("service stopped before the job ran")
)
