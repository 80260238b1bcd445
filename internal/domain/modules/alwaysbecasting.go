package modules

import (
	"github.com/okian/fightlog/internal/domain/analyzer"
	"github.com/okian/fightlog/internal/domain/event"
	"github.com/okian/fightlog/internal/domain/graph"
)

// AlwaysBeCastingConfig holds the downtime thresholds as ratios.
type AlwaysBeCastingConfig struct {
	ShowStatistic bool
	Minor         float64
	Average       float64
	Major         float64
}

// DefaultAlwaysBeCastingConfig suggests above 2%, 4% and 6% downtime.
func DefaultAlwaysBeCastingConfig() AlwaysBeCastingConfig {
	return AlwaysBeCastingConfig{ShowStatistic: true, Minor: 0.02, Average: 0.04, Major: 0.06}
}

// AlwaysBeCasting accumulates the time the selected player spent casting or
// waiting on the GCD.
type AlwaysBeCasting struct {
	analyzer.Base

	cfg AlwaysBeCastingConfig
	gcd *GlobalCooldown

	activeTime int64
	lastGCD    int64

	// channel still running at the current stream position
	channelOpen  bool
	channelStart int64
}

// NewAlwaysBeCasting constructs the active time tracker. It depends on
// globalCooldown and channeling, which synthesize the events it consumes.
func NewAlwaysBeCasting(env analyzer.Env, deps graph.Deps) (analyzer.Module, error) {
	cfg, err := configOr(env, DefaultAlwaysBeCastingConfig())
	if err != nil {
		return nil, err
	}
	gcd, err := graph.Dep[*GlobalCooldown](deps, KeyGlobalCooldown)
	if err != nil {
		return nil, err
	}
	a := &AlwaysBeCasting{cfg: cfg, gcd: gcd}
	a.Init(env)
	a.Listen(analyzer.Events(event.KindGlobalCooldown).By(analyzer.SelectedPlayer), a.onGlobalCooldown)
	a.Listen(analyzer.Events(event.KindBeginChannel).By(analyzer.SelectedPlayer), a.onBeginChannel)
	a.Listen(analyzer.Events(event.KindEndChannel).By(analyzer.SelectedPlayer), a.onEndChannel)
	return a, nil
}

func (a *AlwaysBeCasting) onGlobalCooldown(ev event.Event) error {
	a.lastGCD = ev.Duration()
	if ev.Trigger == nil || ev.Trigger.Prepull {
		return nil
	}
	// Channels are counted when they end.
	if ev.Trigger.Kind == event.KindBeginChannel {
		return nil
	}
	a.activeTime += ev.Duration()
	return nil
}

func (a *AlwaysBeCasting) onBeginChannel(ev event.Event) error {
	a.channelOpen = true
	a.channelStart = max(ev.Timestamp, a.Encounter().Start())
	return nil
}

func (a *AlwaysBeCasting) onEndChannel(ev event.Event) error {
	a.channelOpen = false
	amount := ev.Duration()
	if a.gcd.IsOnGlobalCooldown(ev.Ability.ID) && a.lastGCD > amount {
		amount = a.lastGCD
	}
	a.activeTime += amount
	return nil
}

// ActiveTime is the accumulated active time in milliseconds. A channel that
// never ended counts until the end of the fight.
func (a *AlwaysBeCasting) ActiveTime() int64 {
	if !a.channelOpen {
		return a.activeTime
	}
	return a.activeTime + max(a.Encounter().End()-a.channelStart, 0)
}

// ActiveTimePercentage is the share of the fight spent active.
func (a *AlwaysBeCasting) ActiveTimePercentage() float64 {
	d := a.Encounter().Duration()
	if d <= 0 {
		return 0
	}
	return float64(a.ActiveTime()) / float64(d)
}

// DowntimePercentage is the share of the fight spent doing nothing.
func (a *AlwaysBeCasting) DowntimePercentage() float64 {
	return 1 - a.ActiveTimePercentage()
}

// TotalTimeWasted is the fight duration not covered by active time.
func (a *AlwaysBeCasting) TotalTimeWasted() int64 {
	return a.Encounter().Duration() - a.ActiveTime()
}

func (a *AlwaysBeCasting) thresholds() analyzer.Thresholds {
	return analyzer.Thresholds{
		Actual:  a.DowntimePercentage(),
		Minor:   a.cfg.Minor,
		Average: a.cfg.Average,
		Major:   a.cfg.Major,
		Compare: analyzer.GreaterThan,
		Style:   analyzer.StylePercentage,
	}
}

func (a *AlwaysBeCasting) Statistic() (analyzer.Statistic, bool) {
	if !a.cfg.ShowStatistic || a.Encounter().DowntimeStatisticDisabled() || !a.gcd.IsAccurate() {
		return analyzer.Statistic{}, false
	}
	return analyzer.Statistic{
		Position: analyzer.Core(10),
		Label:    "Downtime",
		Value:    analyzer.FormatPercentage(a.DowntimePercentage()) + " %",
		Icon:     "spell_mage_altertime",
		Tooltip: "Downtime is available time not used to cast anything, including not having your GCD rolling. " +
			"You spent " + analyzer.FormatPercentage(a.ActiveTimePercentage()) + "% of your time casting something and " +
			analyzer.FormatPercentage(a.DowntimePercentage()) + "% casting nothing at all.",
		Items: []analyzer.StatisticItem{
			{Label: "Active time", Value: analyzer.FormatPercentage(a.ActiveTimePercentage()) + "%"},
			{Label: "Downtime", Value: analyzer.FormatPercentage(a.DowntimePercentage()) + "%"},
		},
	}, true
}

func (a *AlwaysBeCasting) Suggestions() []analyzer.Suggestion {
	if a.Encounter().DowntimeStatisticDisabled() {
		return nil
	}
	s, ok := analyzer.Suggest(a.thresholds(),
		"Your downtime can be improved. Try to Always Be Casting (ABC), avoid delays between casting spells and cast instant spells when you have to move.",
		analyzer.WithIcon("spell_mage_altertime"),
		analyzer.WithActual("downtime"))
	if !ok {
		return nil
	}
	return []analyzer.Suggestion{s}
}
