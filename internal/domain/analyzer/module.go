// Package analyzer defines the contract every analysis module implements:
// an activity flag, explicit event subscriptions, a synthetic-event lookahead
// and optional output producers.
//
// Modules embed Base, register their handlers while being constructed and
// keep all mutable state to themselves. Dependencies are injected by the
// graph package and may be read but never written.
package analyzer

import (
	"github.com/okian/fightlog/internal/domain/encounter"
	"github.com/okian/fightlog/internal/domain/event"
	"github.com/okian/fightlog/pkg/logger"
)

// Handler consumes one event. A returned error degrades the module.
type Handler func(event.Event) error

// Subscription maps a filter to a handler.
type Subscription struct {
	Filter  Filter
	Handler Handler
}

// Module is a unit of analysis participating in one run.
type Module interface {
	// Key is the unique registry key of the module.
	Key() string

	// Active reports whether the module participates in the run. It is
	// read once, right after construction.
	Active() bool

	// Subscriptions lists the handlers in registration order.
	Subscriptions() []Subscription

	// Lookahead is the maximum number of milliseconds a synthetic event
	// emitted by the module may lie after its trigger.
	Lookahead() int64
}

// SuggestionProducer is implemented by modules that produce suggestions.
type SuggestionProducer interface {
	Suggestions() []Suggestion
}

// StatisticProducer is implemented by modules that produce a statistic.
// Returning false declines output for this run.
type StatisticProducer interface {
	Statistic() (Statistic, bool)
}

// TabProducer is implemented by modules that produce a tab.
type TabProducer interface {
	Tab() (Tab, bool)
}

// Emitter receives synthetic events. The dispatcher binds the trigger and
// validates the event against the emitting module's lookahead.
type Emitter interface {
	Emit(key string, ev event.Event) error
}

// Env is everything a module constructor receives besides its dependencies.
type Env struct {
	Key       string
	Encounter *encounter.Context
	Config    any
	Emitter   Emitter
	Logger    logger.Logger
}

// Base implements the bookkeeping half of Module. Embed it by value and call
// Init first thing in the constructor.
type Base struct {
	env       Env
	inactive  bool
	lookahead int64
	subs      []Subscription
}

// Init binds the module to its run environment.
func (b *Base) Init(env Env) {
	b.env = env
}

func (b *Base) Key() string                   { return b.env.Key }
func (b *Base) Active() bool                  { return !b.inactive }
func (b *Base) Lookahead() int64              { return b.lookahead }
func (b *Base) Subscriptions() []Subscription { return b.subs }

// SetActive toggles participation. Only meaningful during construction.
func (b *Base) SetActive(active bool) { b.inactive = !active }

// SetLookahead sets the synthetic emission window in milliseconds.
func (b *Base) SetLookahead(ms int64) {
	if ms >= 0 {
		b.lookahead = ms
	}
}

// On subscribes h to every event of kind.
func (b *Base) On(kind event.Kind, h Handler) {
	b.Listen(Events(kind), h)
}

// Listen subscribes h to events matching f.
func (b *Base) Listen(f Filter, h Handler) {
	b.subs = append(b.subs, Subscription{Filter: f, Handler: h})
}

// Emit queues a synthetic event. The trigger is the event currently being
// handled.
func (b *Base) Emit(ev event.Event) error {
	if b.env.Emitter == nil {
		return ErrNoEmitter
	}
	return b.env.Emitter.Emit(b.env.Key, ev)
}

// Encounter returns the shared run context.
func (b *Base) Encounter() *encounter.Context { return b.env.Encounter }

// Selected returns the combatant under analysis.
func (b *Base) Selected() encounter.Combatant { return b.env.Encounter.Selected() }

// Config returns the registry-supplied configuration value.
func (b *Base) Config() any { return b.env.Config }

// Logger returns the module logger, falling back to the global one.
func (b *Base) Logger() logger.Logger {
	if b.env.Logger != nil {
		return b.env.Logger
	}
	return logger.Get().Named(b.env.Key)
}
