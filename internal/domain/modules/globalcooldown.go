package modules

import (
	"math"

	"github.com/okian/fightlog/internal/domain/analyzer"
	"github.com/okian/fightlog/internal/domain/event"
	"github.com/okian/fightlog/internal/domain/graph"
)

// GlobalCooldownConfig tunes GCD synthesis. Durations are milliseconds.
type GlobalCooldownConfig struct {
	Base      int64
	Min       int64
	OffGCD    []int
	Overrides map[int]int64
	// Tolerance is how far a cast may start inside the previous GCD before
	// it counts as an overlap.
	Tolerance int64
}

// DefaultGlobalCooldownConfig is a 1.5s hasted GCD with a 0.75s floor.
func DefaultGlobalCooldownConfig() GlobalCooldownConfig {
	return GlobalCooldownConfig{Base: 1500, Min: 750, Tolerance: 100}
}

// GlobalCooldown fabricates a globalcooldown event for every on-GCD cast of
// the selected player. Channeled casts trigger it through beginchannel.
type GlobalCooldown struct {
	analyzer.Base

	cfg        GlobalCooldownConfig
	offGCD     map[int]struct{}
	channeling *Channeling
	haste      float64

	gcdEnd   int64
	count    int
	overlaps int
	last     int64
}

// NewGlobalCooldown constructs the GCD synthesizer. It depends on channeling.
func NewGlobalCooldown(env analyzer.Env, deps graph.Deps) (analyzer.Module, error) {
	cfg, err := configOr(env, DefaultGlobalCooldownConfig())
	if err != nil {
		return nil, err
	}
	ch, err := graph.Dep[*Channeling](deps, KeyChanneling)
	if err != nil {
		return nil, err
	}
	g := &GlobalCooldown{
		cfg:        cfg,
		offGCD:     toSet(cfg.OffGCD),
		channeling: ch,
		gcdEnd:     math.MinInt64,
	}
	g.Init(env)
	g.haste = g.Selected().Haste()
	g.Listen(analyzer.Events(event.KindCast).By(analyzer.SelectedPlayer), g.onCast)
	g.Listen(analyzer.Events(event.KindBeginChannel).By(analyzer.SelectedPlayer), g.trigger)
	return g, nil
}

func (g *GlobalCooldown) onCast(ev event.Event) error {
	if g.channeling.Channeled(ev.Ability.ID) {
		return nil
	}
	return g.trigger(ev)
}

func (g *GlobalCooldown) trigger(ev event.Event) error {
	if !g.IsOnGlobalCooldown(ev.Ability.ID) {
		return nil
	}
	d := g.Duration(ev.Ability.ID)
	if g.count > 0 && ev.Timestamp < g.gcdEnd-g.cfg.Tolerance {
		g.overlaps++
	}
	g.count++
	g.last = d
	g.gcdEnd = ev.Timestamp + d
	return g.Emit(event.Event{
		Timestamp: ev.Timestamp,
		Kind:      event.KindGlobalCooldown,
		SourceID:  ev.SourceID,
		TargetID:  ev.TargetID,
		Ability:   ev.Ability,
		Prepull:   ev.Prepull,
		Meta:      event.Meta{event.MetaDuration: d},
	})
}

// IsOnGlobalCooldown reports whether ability triggers the GCD.
func (g *GlobalCooldown) IsOnGlobalCooldown(ability int) bool {
	_, off := g.offGCD[ability]
	return !off
}

// Duration returns the GCD ability triggers for the selected combatant.
func (g *GlobalCooldown) Duration(ability int) int64 {
	if d, ok := g.cfg.Overrides[ability]; ok {
		return d
	}
	d := int64(math.Round(float64(g.cfg.Base) / (1 + g.haste)))
	if d < g.cfg.Min {
		return g.cfg.Min
	}
	return d
}

// LastDuration is the duration of the most recent GCD.
func (g *GlobalCooldown) LastDuration() int64 { return g.last }

// Count is the number of GCDs fabricated so far.
func (g *GlobalCooldown) Count() int { return g.count }

// IsAccurate reports whether the estimated GCDs are consistent with the
// log: at most one in ten may start inside the previous one.
func (g *GlobalCooldown) IsAccurate() bool {
	return g.overlaps*10 <= g.count
}
