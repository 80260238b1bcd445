package modules

import (
	"cmp"
	"slices"

	"github.com/okian/fightlog/internal/domain/analyzer"
	"github.com/okian/fightlog/internal/domain/event"
	"github.com/okian/fightlog/internal/domain/graph"
)

// CastCount is one row of the casts tab.
type CastCount struct {
	AbilityID int    `json:"ability_id"`
	Name      string `json:"name,omitempty"`
	Casts     int    `json:"casts"`
}

// CastSummary counts the casts of the selected player per ability.
type CastSummary struct {
	analyzer.Base

	counts map[int]*CastCount
}

// NewCastSummary constructs the cast counter.
func NewCastSummary(env analyzer.Env, _ graph.Deps) (analyzer.Module, error) {
	c := &CastSummary{counts: make(map[int]*CastCount)}
	c.Init(env)
	c.Listen(analyzer.Events(event.KindCast).By(analyzer.SelectedPlayer), c.onCast)
	return c, nil
}

func (c *CastSummary) onCast(ev event.Event) error {
	if ev.Prepull {
		return nil
	}
	row, ok := c.counts[ev.Ability.ID]
	if !ok {
		row = &CastCount{AbilityID: ev.Ability.ID, Name: ev.Ability.Name}
		c.counts[ev.Ability.ID] = row
	}
	row.Casts++
	return nil
}

// Casts returns the rows, most cast first, ties by ability id.
func (c *CastSummary) Casts() []CastCount {
	rows := make([]CastCount, 0, len(c.counts))
	for _, r := range c.counts {
		rows = append(rows, *r)
	}
	slices.SortFunc(rows, func(a, b CastCount) int {
		if a.Casts != b.Casts {
			return b.Casts - a.Casts
		}
		return cmp.Compare(a.AbilityID, b.AbilityID)
	})
	return rows
}

func (c *CastSummary) Tab() (analyzer.Tab, bool) {
	if len(c.counts) == 0 {
		return analyzer.Tab{}, false
	}
	return analyzer.Tab{Title: "Casts", URL: "casts", Content: c.Casts()}, true
}
