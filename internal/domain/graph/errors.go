package graph

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel error kinds for this package.
var (
	ErrDuplicateModule      = errors.New("duplicate module key")
	ErrInvalidEntry         = errors.New("invalid registry entry")
	ErrCyclicDependency     = errors.New("cyclic dependency")
	ErrUnresolvedDependency = errors.New("unresolved dependency")
	ErrConstruct            = errors.New("module construction failed")
	ErrUnknownDependency    = errors.New("not a declared dependency")
	ErrDependencyType       = errors.New("dependency has unexpected type")
	ErrUnbound              = errors.New("graph has no emitter bound")
)

// CyclicDependencyError names the dependency cycle, first key repeated last.
type CyclicDependencyError struct {
	Path []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("%v: %s", ErrCyclicDependency, strings.Join(e.Path, " -> "))
}

func (e *CyclicDependencyError) Is(target error) bool { return target == ErrCyclicDependency }

// UnresolvedDependencyError names a dependency key missing from the registry.
type UnresolvedDependencyError struct {
	Module     string
	Dependency string
}

func (e *UnresolvedDependencyError) Error() string {
	return fmt.Sprintf("%v: module %q depends on %q", ErrUnresolvedDependency, e.Module, e.Dependency)
}

func (e *UnresolvedDependencyError) Is(target error) bool { return target == ErrUnresolvedDependency }
