package analyzer

import "errors"

// Sentinel error kinds for this package.
var (
	ErrNoEmitter = errors.New("module has no emitter bound")
)
