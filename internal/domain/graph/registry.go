// Package graph resolves a module registry into a dependency-ordered graph
// and constructs one instance of every module per run.
package graph

import (
	"fmt"
	"slices"

	"github.com/okian/fightlog/internal/domain/analyzer"
)

// Constructor builds a module. deps holds the already-built instances of
// the entry's declared dependencies.
type Constructor func(env analyzer.Env, deps Deps) (analyzer.Module, error)

// Entry registers one module.
type Entry struct {
	Key          string
	New          Constructor
	Config       any
	Dependencies []string
}

// Registry is an ordered list of entries. Declaration order breaks ties
// between independent modules.
type Registry []Entry

// Keys returns the registered keys in declaration order.
func (r Registry) Keys() []string {
	keys := make([]string, len(r))
	for i, e := range r {
		keys[i] = e.Key
	}
	return keys
}

// With returns a copy of r with entries appended, replacing entries that
// share a key in place.
func (r Registry) With(entries ...Entry) Registry {
	out := slices.Clone(r)
	for _, e := range entries {
		if i := slices.IndexFunc(out, func(x Entry) bool { return x.Key == e.Key }); i >= 0 {
			out[i] = e
			continue
		}
		out = append(out, e)
	}
	return out
}

const (
	unvisited = iota
	visiting
	visited
)

// Resolve returns the construction order of r: a depth-first post-order
// over entries in declaration order, dependencies in their declared order.
// It fails before anything is constructed.
func Resolve(r Registry) ([]string, error) {
	index := make(map[string]int, len(r))
	for i, e := range r {
		if e.Key == "" || e.New == nil {
			return nil, fmt.Errorf("%w: entry %d (%q)", ErrInvalidEntry, i, e.Key)
		}
		if _, dup := index[e.Key]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateModule, e.Key)
		}
		index[e.Key] = i
	}

	marks := make([]int, len(r))
	order := make([]string, 0, len(r))
	var stack []string

	var visit func(i int) error
	visit = func(i int) error {
		switch marks[i] {
		case visited:
			return nil
		case visiting:
			start := slices.Index(stack, r[i].Key)
			path := append(slices.Clone(stack[start:]), r[i].Key)
			return &CyclicDependencyError{Path: path}
		}
		marks[i] = visiting
		stack = append(stack, r[i].Key)
		for _, dep := range r[i].Dependencies {
			j, ok := index[dep]
			if !ok {
				return &UnresolvedDependencyError{Module: r[i].Key, Dependency: dep}
			}
			if err := visit(j); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		marks[i] = visited
		order = append(order, r[i].Key)
		return nil
	}

	for i := range r {
		if err := visit(i); err != nil {
			return nil, err
		}
	}
	return order, nil
}
