package modules

import (
	"github.com/okian/fightlog/internal/domain/analyzer"
	"github.com/okian/fightlog/internal/domain/event"
	"github.com/okian/fightlog/internal/domain/graph"
)

type auraKey struct {
	actor   int
	ability int
}

// Buffs tracks which buffs are currently up on every actor.
type Buffs struct {
	analyzer.Base

	active map[auraKey]int64
}

// NewBuffs constructs the buff tracker.
func NewBuffs(env analyzer.Env, _ graph.Deps) (analyzer.Module, error) {
	b := &Buffs{active: make(map[auraKey]int64)}
	b.Init(env)
	b.On(event.KindApplyBuff, b.onApply)
	b.On(event.KindRemoveBuff, b.onRemove)
	return b, nil
}

func (b *Buffs) onApply(ev event.Event) error {
	b.active[auraKey{actor: ev.TargetID, ability: ev.Ability.ID}] = ev.Timestamp
	return nil
}

func (b *Buffs) onRemove(ev event.Event) error {
	delete(b.active, auraKey{actor: ev.TargetID, ability: ev.Ability.ID})
	return nil
}

// HasBuff reports whether ability is up on actor at the current stream
// position.
func (b *Buffs) HasBuff(actor, ability int) bool {
	_, ok := b.active[auraKey{actor: actor, ability: ability}]
	return ok
}

// AppliedAt returns when the buff was applied, if it is up.
func (b *Buffs) AppliedAt(actor, ability int) (int64, bool) {
	ts, ok := b.active[auraKey{actor: actor, ability: ability}]
	return ts, ok
}
