package modules

import (
	"github.com/okian/fightlog/internal/domain/analyzer"
	"github.com/okian/fightlog/internal/domain/event"
	"github.com/okian/fightlog/internal/domain/graph"
)

// DebuffUptimeConfig describes one tracked debuff. Talent gates the module
// when non-zero. Standalone modules report their own statistic; grouped ones
// only feed an UptimeGroup.
type DebuffUptimeConfig struct {
	AbilityID  int
	Name       string
	Talent     int
	Standalone bool
	Position   analyzer.Position
	// Minimum uptime ratios; below Minor a suggestion is raised.
	Minor   float64
	Average float64
	Major   float64
}

// DebuffUptime measures the share of the fight the selected player kept a
// debuff on at least one enemy.
type DebuffUptime struct {
	analyzer.Base

	cfg     DebuffUptimeConfig
	targets map[int]struct{}
	since   int64
	uptime  int64
}

// NewDebuffUptime constructs a debuff uptime tracker.
func NewDebuffUptime(env analyzer.Env, _ graph.Deps) (analyzer.Module, error) {
	cfg, err := configOr(env, DebuffUptimeConfig{})
	if err != nil {
		return nil, err
	}
	u := &DebuffUptime{cfg: cfg, targets: make(map[int]struct{})}
	u.Init(env)
	if cfg.Talent != 0 {
		u.SetActive(u.Selected().HasTalent(cfg.Talent))
	}
	if !u.Active() {
		return u, nil
	}
	mine := func(k event.Kind) analyzer.Filter {
		return analyzer.Events(k).By(analyzer.SelectedPlayer).Spell(cfg.AbilityID)
	}
	u.Listen(mine(event.KindApplyDebuff), u.onApply)
	u.Listen(mine(event.KindRemoveDebuff), u.onRemove)
	return u, nil
}

func (u *DebuffUptime) clamp(ts int64) int64 {
	enc := u.Encounter()
	if ts < enc.Start() {
		return enc.Start()
	}
	if ts > enc.End() {
		return enc.End()
	}
	return ts
}

func (u *DebuffUptime) onApply(ev event.Event) error {
	if len(u.targets) == 0 {
		u.since = u.clamp(ev.Timestamp)
	}
	u.targets[ev.TargetID] = struct{}{}
	return nil
}

func (u *DebuffUptime) onRemove(ev event.Event) error {
	if _, ok := u.targets[ev.TargetID]; !ok {
		return nil
	}
	delete(u.targets, ev.TargetID)
	if len(u.targets) == 0 {
		u.uptime += u.clamp(ev.Timestamp) - u.since
	}
	return nil
}

// Uptime is the covered time in milliseconds. Debuffs still up count until
// the end of the fight.
func (u *DebuffUptime) Uptime() int64 {
	if len(u.targets) > 0 {
		return u.uptime + u.Encounter().End() - u.since
	}
	return u.uptime
}

// Ratio is the uptime as a share of the fight.
func (u *DebuffUptime) Ratio() float64 {
	d := u.Encounter().Duration()
	if d <= 0 {
		return 0
	}
	return float64(u.Uptime()) / float64(d)
}

// Item renders the uptime as a grouped statistic row.
func (u *DebuffUptime) Item() analyzer.StatisticItem {
	return analyzer.StatisticItem{Label: u.cfg.Name, Value: analyzer.FormatPercentage(u.Ratio()) + "%"}
}

func (u *DebuffUptime) Statistic() (analyzer.Statistic, bool) {
	if !u.cfg.Standalone {
		return analyzer.Statistic{}, false
	}
	return analyzer.Statistic{
		Position: u.cfg.Position,
		Label:    u.cfg.Name + " uptime",
		Value:    analyzer.FormatPercentage(u.Ratio()) + " %",
	}, true
}

func (u *DebuffUptime) Suggestions() []analyzer.Suggestion {
	if u.cfg.Minor <= 0 {
		return nil
	}
	s, ok := analyzer.Suggest(analyzer.Thresholds{
		Actual:  u.Ratio(),
		Minor:   u.cfg.Minor,
		Average: u.cfg.Average,
		Major:   u.cfg.Major,
		Compare: analyzer.LessThan,
		Style:   analyzer.StylePercentage,
	}, "Your "+u.cfg.Name+" uptime can be improved. Try to pay more attention to it and refresh it before it falls off.",
		analyzer.WithActual(u.cfg.Name+" uptime"))
	if !ok {
		return nil
	}
	return []analyzer.Suggestion{s}
}
