package modules

import (
	"github.com/okian/fightlog/internal/domain/analyzer"
	"github.com/okian/fightlog/internal/domain/graph"
)

// UptimeGroupConfig names the uptime modules shown together. Every member
// must also be a declared dependency.
type UptimeGroupConfig struct {
	Label    string
	Position analyzer.Position
	Members  []string
}

// UptimeGroup combines several DebuffUptime rows into one statistic,
// skipping inactive members.
type UptimeGroup struct {
	analyzer.Base

	cfg     UptimeGroupConfig
	members []*DebuffUptime
}

// NewUptimeGroup constructs the grouped statistic.
func NewUptimeGroup(env analyzer.Env, deps graph.Deps) (analyzer.Module, error) {
	cfg, err := configOr(env, UptimeGroupConfig{})
	if err != nil {
		return nil, err
	}
	g := &UptimeGroup{cfg: cfg}
	g.Init(env)
	for _, key := range cfg.Members {
		m, err := graph.Dep[*DebuffUptime](deps, key)
		if err != nil {
			return nil, err
		}
		if m.Active() {
			g.members = append(g.members, m)
		}
	}
	g.SetActive(len(g.members) > 0)
	return g, nil
}

func (g *UptimeGroup) Statistic() (analyzer.Statistic, bool) {
	items := make([]analyzer.StatisticItem, 0, len(g.members))
	for _, m := range g.members {
		items = append(items, m.Item())
	}
	return analyzer.Statistic{
		Position: g.cfg.Position,
		Label:    g.cfg.Label,
		Items:    items,
	}, true
}
