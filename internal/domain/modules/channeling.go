package modules

import (
	"github.com/okian/fightlog/internal/domain/analyzer"
	"github.com/okian/fightlog/internal/domain/event"
	"github.com/okian/fightlog/internal/domain/graph"
)

// ChannelingConfig lists the channeled abilities. Casts of Ignored
// abilities never interrupt a channel.
type ChannelingConfig struct {
	Abilities []int
	Ignored   []int
}

type channel struct {
	start   int64
	ability event.Ability
	target  int
}

// Channeling fabricates beginchannel and endchannel events. State is kept
// per source actor.
type Channeling struct {
	analyzer.Base

	channeled map[int]struct{}
	ignored   map[int]struct{}
	open      map[int]channel
}

// NewChanneling constructs the channel synthesizer.
func NewChanneling(env analyzer.Env, _ graph.Deps) (analyzer.Module, error) {
	cfg, err := configOr(env, ChannelingConfig{})
	if err != nil {
		return nil, err
	}
	c := &Channeling{
		channeled: toSet(cfg.Abilities),
		ignored:   toSet(cfg.Ignored),
		open:      make(map[int]channel),
	}
	c.Init(env)
	c.On(event.KindCast, c.onCast)
	c.On(event.KindRemoveBuff, c.onRemove)
	c.On(event.KindRemoveDebuff, c.onRemove)
	return c, nil
}

func (c *Channeling) onCast(ev event.Event) error {
	if _, ok := c.ignored[ev.Ability.ID]; ok {
		return nil
	}
	if ch, ok := c.open[ev.SourceID]; ok {
		if err := c.end(ev, ch, true); err != nil {
			return err
		}
	}
	if !c.Channeled(ev.Ability.ID) {
		return nil
	}
	c.open[ev.SourceID] = channel{start: ev.Timestamp, ability: ev.Ability, target: ev.TargetID}
	return c.Emit(event.Event{
		Timestamp: ev.Timestamp,
		Kind:      event.KindBeginChannel,
		SourceID:  ev.SourceID,
		TargetID:  ev.TargetID,
		Ability:   ev.Ability,
		Prepull:   ev.Prepull,
	})
}

func (c *Channeling) onRemove(ev event.Event) error {
	ch, ok := c.open[ev.SourceID]
	if !ok || ch.ability.ID != ev.Ability.ID {
		return nil
	}
	return c.end(ev, ch, false)
}

func (c *Channeling) end(at event.Event, ch channel, cancelled bool) error {
	delete(c.open, at.SourceID)
	return c.Emit(event.Event{
		Timestamp: at.Timestamp,
		Kind:      event.KindEndChannel,
		SourceID:  at.SourceID,
		TargetID:  ch.target,
		Ability:   ch.ability,
		Meta: event.Meta{
			event.MetaDuration:  at.Timestamp - ch.start,
			event.MetaCancelled: cancelled,
			"start":             ch.start,
		},
	})
}

// Channeled reports whether ability is a channel.
func (c *Channeling) Channeled(ability int) bool {
	_, ok := c.channeled[ability]
	return ok
}

// IsChanneling reports whether actor is channeling at the current stream
// position.
func (c *Channeling) IsChanneling(actor int) bool {
	_, ok := c.open[actor]
	return ok
}
