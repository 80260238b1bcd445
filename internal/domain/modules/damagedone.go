package modules

import (
	"github.com/okian/fightlog/internal/domain/analyzer"
	"github.com/okian/fightlog/internal/domain/event"
	"github.com/okian/fightlog/internal/domain/graph"
)

// DamageDoneConfig toggles the DPS statistic.
type DamageDoneConfig struct {
	ShowStatistic bool
}

// DamageDone sums the damage dealt by the selected player, absorbed
// damage included.
type DamageDone struct {
	analyzer.Base

	cfg       DamageDoneConfig
	total     int64
	byAbility map[int]int64
}

// NewDamageDone constructs the damage tracker.
func NewDamageDone(env analyzer.Env, _ graph.Deps) (analyzer.Module, error) {
	cfg, err := configOr(env, DamageDoneConfig{})
	if err != nil {
		return nil, err
	}
	d := &DamageDone{cfg: cfg, byAbility: make(map[int]int64)}
	d.Init(env)
	d.Listen(analyzer.Events(event.KindDamage).By(analyzer.SelectedPlayer), d.onDamage)
	return d, nil
}

func (d *DamageDone) onDamage(ev event.Event) error {
	amount := ev.Amount + ev.Absorbed()
	d.total += amount
	d.byAbility[ev.Ability.ID] += amount
	return nil
}

// Total is the damage dealt so far.
func (d *DamageDone) Total() int64 { return d.total }

// ByAbility is the damage dealt by one ability so far.
func (d *DamageDone) ByAbility(ability int) int64 { return d.byAbility[ability] }

// PerSecond is the damage per second over the whole fight.
func (d *DamageDone) PerSecond() float64 {
	dur := d.Encounter().Duration()
	if dur <= 0 {
		return 0
	}
	return float64(d.total) / float64(dur) * 1000
}

func (d *DamageDone) Statistic() (analyzer.Statistic, bool) {
	if !d.cfg.ShowStatistic {
		return analyzer.Statistic{}, false
	}
	return analyzer.Statistic{
		Position: analyzer.Core(0),
		Label:    "Damage done",
		Value:    analyzer.FormatThousands(d.PerSecond()) + " DPS",
		Tooltip:  "Total damage done " + analyzer.FormatThousands(float64(d.total)),
		Icon:     "sword",
	}, true
}
