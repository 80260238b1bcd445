package config

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")

	// ErrInvalidAnalysis reports a bad analysis block; it matches
	// ErrInvalidConfig too.
	ErrInvalidAnalysis = fmt.Errorf("%w: analysis", ErrInvalidConfig)
)
