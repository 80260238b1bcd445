package analyzer

import "github.com/okian/fightlog/internal/domain/event"

type selectorKind uint8

const (
	selectAny selectorKind = iota
	selectSelected
	selectActor
)

// Selector narrows a filter to a source or target actor.
type Selector struct {
	kind selectorKind
	id   int
}

// SelectedPlayer matches the combatant under analysis.
var SelectedPlayer = Selector{kind: selectSelected}

// Actor matches one actor id.
func Actor(id int) Selector {
	return Selector{kind: selectActor, id: id}
}

func (s Selector) matches(id, selected int) bool {
	switch s.kind {
	case selectSelected:
		return id == selected
	case selectActor:
		return id == s.id
	default:
		return true
	}
}

// Filter selects events by kind and optionally by source, target and
// ability. Build it with Events.
type Filter struct {
	Kind    event.Kind
	source  Selector
	target  Selector
	ability int
}

// Events starts a filter for kind.
func Events(kind event.Kind) Filter {
	return Filter{Kind: kind}
}

// By restricts the filter to events whose source matches s.
func (f Filter) By(s Selector) Filter {
	f.source = s
	return f
}

// To restricts the filter to events whose target matches s.
func (f Filter) To(s Selector) Filter {
	f.target = s
	return f
}

// Spell restricts the filter to one ability id.
func (f Filter) Spell(id int) Filter {
	f.ability = id
	return f
}

// Matches reports whether ev passes the filter. selected is the id of the
// combatant under analysis.
func (f Filter) Matches(ev event.Event, selected int) bool {
	if ev.Kind != f.Kind {
		return false
	}
	if f.ability != 0 && ev.Ability.ID != f.ability {
		return false
	}
	return f.source.matches(ev.SourceID, selected) && f.target.matches(ev.TargetID, selected)
}
