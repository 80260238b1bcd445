// Package dispatch replays an ordered event stream through a module graph,
// merging synthetic events emitted by modules into the stream.
//
// A run is a single-goroutine fold. Real events are delivered in log order;
// synthetic events wait in a min-heap and are delivered as soon as no real
// event precedes them, so they always follow their trigger and precede any
// later real event carrying the same timestamp.
package dispatch

import (
	"container/heap"
	"context"
	"fmt"

	"github.com/okian/fightlog/internal/domain/encounter"
	"github.com/okian/fightlog/internal/domain/event"
	"github.com/okian/fightlog/internal/domain/graph"
	"github.com/okian/fightlog/pkg/logger"
)

// Stats summarizes one run.
type Stats struct {
	Real      int `json:"real"`
	Synthetic int `json:"synthetic"`
	Delivered int `json:"delivered"`
	Dropped   int `json:"dropped"`
	Filtered  int `json:"filtered"`
	Degraded  int `json:"degraded"`
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(l logger.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

// Dispatcher delivers one event stream to one graph. It is single use.
type Dispatcher struct {
	g   *graph.Graph
	enc *encounter.Context
	log logger.Logger

	ran      bool
	pending  pendingQueue
	seq      uint64
	current  *event.Event
	emitErr  map[string]error
	failures []*ModuleHandlerError
	stats    Stats
}

// New creates a dispatcher for g. enc bounds the fight; it defaults to the
// context g was built with.
func New(g *graph.Graph, enc *encounter.Context, opts ...Option) *Dispatcher {
	if enc == nil {
		enc = g.Encounter()
	}
	d := &Dispatcher{
		g:       g,
		enc:     enc,
		log:     g.Logger(),
		emitErr: make(map[string]error),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run streams events through the graph. Events must be in non-decreasing
// timestamp order; a violation fails the whole run. Module failures only
// degrade the failing module.
func (d *Dispatcher) Run(ctx context.Context, events []event.Event) (Stats, error) {
	if d.ran {
		return d.stats, ErrAlreadyRan
	}
	d.ran = true
	if err := ctx.Err(); err != nil {
		return d.stats, err
	}
	d.g.Bind(d)
	defer d.g.Bind(nil)

	for i, ev := range events {
		if i > 0 && ev.Timestamp < events[i-1].Timestamp {
			return d.stats, &event.MalformedEventError{Index: ev.Index, Timestamp: ev.Timestamp, Field: "timestamp", Err: ErrOutOfOrder}
		}
		if ev.Synthetic() {
			return d.stats, &event.MalformedEventError{Index: ev.Index, Timestamp: ev.Timestamp, Field: "type", Err: event.ErrSyntheticKind}
		}
		d.flush(ctx, ev.Timestamp, true)

		d.stats.Real++
		if !d.inBounds(ev) {
			d.stats.Filtered++
			continue
		}
		d.deliver(ctx, ev)
	}
	d.flush(ctx, 0, false)

	d.log.Debug(ctx, "stream dispatched",
		logger.Int("real", d.stats.Real),
		logger.Int("synthetic", d.stats.Synthetic),
		logger.Int("dropped", d.stats.Dropped),
		logger.Int("filtered", d.stats.Filtered),
		logger.Int("degraded", d.stats.Degraded))
	return d.stats, nil
}

// Failures returns the handler errors that degraded modules, in order.
func (d *Dispatcher) Failures() []*ModuleHandlerError { return d.failures }

// Emit implements analyzer.Emitter. It validates ev against the emitting
// module's lookahead and the event currently being handled.
func (d *Dispatcher) Emit(key string, ev event.Event) error {
	if d.current == nil {
		return ErrNoTrigger
	}
	n, ok := d.g.Node(key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownModule, key)
	}
	trigger := *d.current

	var err error
	switch {
	case !ev.Kind.IsSynthetic():
		err = fmt.Errorf("%w: %s", ErrNotSynthetic, ev.Kind)
	case ev.Timestamp < trigger.Timestamp || ev.Timestamp > trigger.Timestamp+n.Module.Lookahead():
		err = fmt.Errorf("%w: %d not in [%d, %d]", ErrLookahead, ev.Timestamp, trigger.Timestamp, trigger.Timestamp+n.Module.Lookahead())
	}
	if err != nil {
		if _, seen := d.emitErr[key]; !seen {
			d.emitErr[key] = err
		}
		return err
	}

	ev.Index = trigger.Index
	ev.Trigger = &trigger
	heap.Push(&d.pending, pendingEvent{ev: ev, seq: d.seq})
	d.seq++
	d.stats.Synthetic++
	return nil
}

// flush delivers pending synthetic events up to limit, or all of them when
// bounded is false. Synthetic events outside the fight are filtered like
// real ones.
func (d *Dispatcher) flush(ctx context.Context, limit int64, bounded bool) {
	for {
		next, ok := d.pending.peek()
		if !ok || (bounded && next.Timestamp > limit) {
			return
		}
		heap.Pop(&d.pending)
		if !d.inBounds(next) {
			d.stats.Filtered++
			continue
		}
		d.deliver(ctx, next)
	}
}

// inBounds reports whether ev lies in the fight. A synthetic event counts as
// prepull when its trigger was.
func (d *Dispatcher) inBounds(ev event.Event) bool {
	if d.enc == nil {
		return true
	}
	prepull := ev.Prepull || (ev.Trigger != nil && ev.Trigger.Prepull)
	if prepull && ev.Timestamp <= d.enc.End() {
		return true
	}
	return d.enc.Contains(ev.Timestamp)
}

func (d *Dispatcher) deliver(ctx context.Context, ev event.Event) {
	selected := event.NoActor
	if d.enc != nil {
		selected = d.enc.SelectedID()
	}
	matched := false
	for _, n := range d.g.Nodes() {
		if n.State() != graph.StateActive {
			continue
		}
		for _, sub := range n.Module.Subscriptions() {
			if n.State() != graph.StateActive {
				break
			}
			if !sub.Filter.Matches(ev, selected) {
				continue
			}
			matched = true
			d.invoke(ctx, n, sub.Handler, ev)
		}
	}
	if matched {
		d.stats.Delivered++
	} else {
		d.stats.Dropped++
	}
}

func (d *Dispatcher) invoke(ctx context.Context, n *graph.Node, h func(event.Event) error, ev event.Event) {
	d.current = &ev
	err := call(h, ev)
	d.current = nil

	if emitErr, ok := d.emitErr[n.Key]; ok && err == nil {
		err = emitErr
	}
	if err == nil {
		return
	}
	failure := &ModuleHandlerError{Module: n.Key, Index: ev.Index, Timestamp: ev.Timestamp, Kind: ev.Kind, Err: err}
	if n.Degrade(failure) {
		d.failures = append(d.failures, failure)
		d.stats.Degraded++
		d.log.Warn(ctx, "module degraded",
			logger.String("module", n.Key),
			logger.String("kind", string(ev.Kind)),
			logger.Int("index", ev.Index),
			logger.Int64("timestamp", ev.Timestamp),
			logger.Error(err))
	}
}

func call(h func(event.Event) error, ev event.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return h(ev)
}
