package modules

import (
	"github.com/okian/fightlog/internal/domain/analyzer"
	"github.com/okian/fightlog/internal/domain/encounter"
	"github.com/okian/fightlog/internal/domain/event"
	"github.com/okian/fightlog/internal/domain/graph"
)

// StoneformConfig describes the dwarf racial.
type StoneformConfig struct {
	BuffID          int
	FallingDamageID int
	Reduction       float64
}

// DefaultStoneformConfig is a 10% physical damage reduction.
func DefaultStoneformConfig() StoneformConfig {
	return StoneformConfig{BuffID: 65116, FallingDamageID: 3, Reduction: 0.1}
}

// Stoneform estimates the physical damage prevented by the dwarf racial.
// Only dwarves run it.
type Stoneform struct {
	analyzer.Base

	cfg   StoneformConfig
	buffs *Buffs

	reduced float64
	taken   int64
}

// NewStoneform constructs the racial tracker. It depends on buffs.
func NewStoneform(env analyzer.Env, deps graph.Deps) (analyzer.Module, error) {
	cfg, err := configOr(env, DefaultStoneformConfig())
	if err != nil {
		return nil, err
	}
	buffs, err := graph.Dep[*Buffs](deps, KeyBuffs)
	if err != nil {
		return nil, err
	}
	s := &Stoneform{cfg: cfg, buffs: buffs}
	s.Init(env)
	s.SetActive(s.Selected().Race() == encounter.RaceDwarf)
	if !s.Active() {
		return s, nil
	}
	s.Listen(analyzer.Events(event.KindDamage).To(analyzer.SelectedPlayer), s.onDamageTaken)
	return s, nil
}

func (s *Stoneform) onDamageTaken(ev event.Event) error {
	if ev.Ability.ID == s.cfg.FallingDamageID {
		return nil
	}
	if ev.Ability.School != event.SchoolPhysical {
		return nil
	}
	if !s.buffs.HasBuff(s.Encounter().SelectedID(), s.cfg.BuffID) {
		return nil
	}
	taken := ev.Amount + ev.Absorbed()
	s.taken += taken
	s.reduced += float64(taken) / (1 - s.cfg.Reduction) * s.cfg.Reduction
	return nil
}

// DamageReduced is the estimated damage prevented.
func (s *Stoneform) DamageReduced() float64 { return s.reduced }

// PhysicalDamageTaken is the physical damage taken while the buff was up.
func (s *Stoneform) PhysicalDamageTaken() int64 { return s.taken }

func (s *Stoneform) Statistic() (analyzer.Statistic, bool) {
	return analyzer.Statistic{
		Position: analyzer.General(0),
		Label:    "Stoneform Damage Reduced",
		Value:    analyzer.FormatThousands(s.reduced),
		Icon:     "spell_shadow_unholystrength",
		Tooltip:  "Over the course of the encounter you took " + analyzer.FormatThousands(float64(s.taken)) + " physical damage while Stoneform was active",
	}, true
}
