package results

import "errors"

// Sentinel error kinds for this package.
var (
	ErrResultAlreadySealed = errors.New("result already sealed")
	ErrProducerPanic       = errors.New("output producer panicked")
)
