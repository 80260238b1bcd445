package dispatch

import (
	"errors"
	"fmt"

	"github.com/okian/fightlog/internal/domain/event"
)

// Sentinel error kinds for this package.
var (
	ErrAlreadyRan    = errors.New("dispatcher already ran")
	ErrOutOfOrder    = errors.New("timestamp precedes previous event")
	ErrNotSynthetic  = errors.New("emitted event kind is not synthetic")
	ErrLookahead     = errors.New("emitted event outside lookahead window")
	ErrNoTrigger     = errors.New("emit outside of an event handler")
	ErrUnknownModule = errors.New("emit from unknown module")
	ErrModuleHandler = errors.New("module handler failed")
	ErrHandlerPanic  = errors.New("module handler panicked")
)

// ModuleHandlerError records why a module was degraded mid-run.
type ModuleHandlerError struct {
	Module    string
	Index     int
	Timestamp int64
	Kind      event.Kind
	Err       error
}

func (e *ModuleHandlerError) Error() string {
	return fmt.Sprintf("module %q failed on %s event %d at %d: %v", e.Module, e.Kind, e.Index, e.Timestamp, e.Err)
}

func (e *ModuleHandlerError) Unwrap() error { return e.Err }

func (e *ModuleHandlerError) Is(target error) bool { return target == ErrModuleHandler }
