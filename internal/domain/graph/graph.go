package graph

import (
	"context"
	"fmt"

	"github.com/okian/fightlog/internal/domain/analyzer"
	"github.com/okian/fightlog/internal/domain/encounter"
	"github.com/okian/fightlog/internal/domain/event"
	"github.com/okian/fightlog/pkg/logger"
)

// State is the participation state of a node.
type State uint8

const (
	// StateActive nodes receive events and are queried for output.
	StateActive State = iota
	// StateInactive nodes opted out at construction. They are never invoked
	// and never show up in results.
	StateInactive
	// StateDegraded nodes failed mid-run. They stop receiving events and
	// are reported as unavailable.
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateInactive:
		return "inactive"
	case StateDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Node is one constructed module.
type Node struct {
	Key          string
	Module       analyzer.Module
	Dependencies []string

	state State
	err   error
}

// State returns the current participation state.
func (n *Node) State() State { return n.state }

// Err returns the failure that degraded the node, if any.
func (n *Node) Err() error { return n.err }

// Degrade marks an active node as failed. The first failure wins.
func (n *Node) Degrade(err error) bool {
	if n.state != StateActive {
		return false
	}
	n.state = StateDegraded
	n.err = err
	return true
}

// Deps gives a constructor read access to its declared dependencies.
type Deps struct {
	owner   string
	modules map[string]analyzer.Module
}

// Get returns a declared dependency by key.
func (d Deps) Get(key string) (analyzer.Module, bool) {
	m, ok := d.modules[key]
	return m, ok
}

// Dep returns the dependency under key as T.
func Dep[T any](d Deps, key string) (T, error) {
	var zero T
	m, ok := d.modules[key]
	if !ok {
		return zero, fmt.Errorf("%w: %q for module %q", ErrUnknownDependency, key, d.owner)
	}
	t, ok := m.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %q is %T for module %q", ErrDependencyType, key, m, d.owner)
	}
	return t, nil
}

// Graph is the constructed module graph of one run.
type Graph struct {
	nodes     []*Node
	index     map[string]*Node
	encounter *encounter.Context
	relay     *relay
	log       logger.Logger
}

// Option configures Build.
type Option func(*buildOptions)

type buildOptions struct {
	log logger.Logger
}

// WithLogger sets the logger used by the graph and handed to modules.
func WithLogger(l logger.Logger) Option {
	return func(o *buildOptions) {
		if l != nil {
			o.log = l
		}
	}
}

// Build resolves r and constructs every module in dependency order.
func Build(ctx context.Context, r Registry, enc *encounter.Context, opts ...Option) (*Graph, error) {
	o := buildOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get().Named("graph")
	}

	order, err := Resolve(r)
	if err != nil {
		return nil, err
	}

	entries := make(map[string]Entry, len(r))
	for _, e := range r {
		entries[e.Key] = e
	}

	g := &Graph{
		nodes:     make([]*Node, 0, len(order)),
		index:     make(map[string]*Node, len(order)),
		encounter: enc,
		relay:     &relay{},
		log:       o.log,
	}
	for _, key := range order {
		e := entries[key]
		deps := Deps{owner: key, modules: make(map[string]analyzer.Module, len(e.Dependencies))}
		for _, dep := range e.Dependencies {
			deps.modules[dep] = g.index[dep].Module
		}
		env := analyzer.Env{
			Key:       key,
			Encounter: enc,
			Config:    e.Config,
			Emitter:   g.relay,
			Logger:    o.log.Named(key),
		}
		m, err := construct(e.New, env, deps)
		if err != nil {
			return nil, fmt.Errorf("%w: module %q: %w", ErrConstruct, key, err)
		}
		n := &Node{Key: key, Module: m, Dependencies: e.Dependencies}
		if !m.Active() {
			n.state = StateInactive
		}
		g.nodes = append(g.nodes, n)
		g.index[key] = n
		o.log.Debug(ctx, "module constructed",
			logger.String("module", key),
			logger.String("state", n.state.String()))
	}
	return g, nil
}

func construct(newFn Constructor, env analyzer.Env, deps Deps) (m analyzer.Module, err error) {
	defer func() {
		if r := recover(); r != nil {
			m, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	m, err = newFn(env, deps)
	if err == nil && m == nil {
		err = fmt.Errorf("constructor returned no module")
	}
	return m, err
}

// Nodes returns the nodes in construction order.
func (g *Graph) Nodes() []*Node { return g.nodes }

// Node looks up a node by key.
func (g *Graph) Node(key string) (*Node, bool) {
	n, ok := g.index[key]
	return n, ok
}

// Encounter returns the context the graph was built for.
func (g *Graph) Encounter() *encounter.Context { return g.encounter }

// Logger returns the graph logger.
func (g *Graph) Logger() logger.Logger { return g.log }

// Bind routes module emissions to e. Rebinding replaces the previous sink.
func (g *Graph) Bind(e analyzer.Emitter) { g.relay.sink = e }

// Counts returns the number of nodes in each state.
func (g *Graph) Counts() map[State]int {
	out := make(map[State]int, 3)
	for _, n := range g.nodes {
		out[n.state]++
	}
	return out
}

type relay struct {
	sink analyzer.Emitter
}

func (r *relay) Emit(key string, ev event.Event) error {
	if r.sink == nil {
		return ErrUnbound
	}
	return r.sink.Emit(key, ev)
}
