// Package encounter holds the read-only context shared by every module of a
// single analysis run.
package encounter

import (
	"errors"
	"fmt"
	"slices"
)

// Sentinel error kinds for this package.
var (
	ErrInvalidBounds    = errors.New("fight end precedes fight start")
	ErrUnknownCombatant = errors.New("selected actor is not in the roster")
)

// Race of a combatant.
type Race string

// Races referenced by built-in modules.
const (
	RaceHuman    Race = "Human"
	RaceDwarf    Race = "Dwarf"
	RaceNightElf Race = "NightElf"
	RaceOrc      Race = "Orc"
	RaceUndead   Race = "Undead"
)

// CombatantSpec is the wire shape of a roster entry.
type CombatantSpec struct {
	ID      int     `json:"id"`
	Name    string  `json:"name"`
	Race    Race    `json:"race"`
	Class   string  `json:"class"`
	Spec    string  `json:"spec"`
	Talents []int   `json:"talents,omitempty"`
	Gear    []int   `json:"gear,omitempty"`
	Haste   float64 `json:"haste,omitempty"`
}

// Spec is the wire shape of an encounter supplied by the log collaborator.
type Spec struct {
	FightID                  int             `json:"fight_id"`
	Boss                     string          `json:"boss,omitempty"`
	Start                    int64           `json:"start"`
	End                      int64           `json:"end"`
	SelectedID               int             `json:"selected_id"`
	DisableDowntimeStatistic bool            `json:"disable_downtime_statistic,omitempty"`
	Combatants               []CombatantSpec `json:"combatants"`
}

// Combatant is an immutable snapshot of one roster entry.
type Combatant struct {
	spec CombatantSpec
}

func (c Combatant) ID() int        { return c.spec.ID }
func (c Combatant) Name() string   { return c.spec.Name }
func (c Combatant) Race() Race     { return c.spec.Race }
func (c Combatant) Class() string  { return c.spec.Class }
func (c Combatant) Spec() string   { return c.spec.Spec }
func (c Combatant) Haste() float64 { return c.spec.Haste }
func (c Combatant) Talents() []int { return slices.Clone(c.spec.Talents) }
func (c Combatant) Gear() []int    { return slices.Clone(c.spec.Gear) }

// HasTalent reports whether the talent id is selected.
func (c Combatant) HasTalent(id int) bool { return slices.Contains(c.spec.Talents, id) }

// HasItem reports whether the item id is equipped.
func (c Combatant) HasItem(id int) bool { return slices.Contains(c.spec.Gear, id) }

// Context is the read-only state of one run. It hands out copies only, so a
// single Context may back several runs at once.
type Context struct {
	fightID         int
	boss            string
	start           int64
	end             int64
	selectedID      int
	disableDowntime bool
	roster          map[int]Combatant
	order           []int
}

// New validates spec and builds an immutable Context.
func New(spec Spec) (*Context, error) {
	if spec.End < spec.Start {
		return nil, fmt.Errorf("%w: start=%d end=%d", ErrInvalidBounds, spec.Start, spec.End)
	}
	c := &Context{
		fightID:         spec.FightID,
		boss:            spec.Boss,
		start:           spec.Start,
		end:             spec.End,
		selectedID:      spec.SelectedID,
		disableDowntime: spec.DisableDowntimeStatistic,
		roster:          make(map[int]Combatant, len(spec.Combatants)),
	}
	for _, cs := range spec.Combatants {
		cs.Talents = slices.Clone(cs.Talents)
		cs.Gear = slices.Clone(cs.Gear)
		if _, dup := c.roster[cs.ID]; !dup {
			c.order = append(c.order, cs.ID)
		}
		c.roster[cs.ID] = Combatant{spec: cs}
	}
	if _, ok := c.roster[spec.SelectedID]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCombatant, spec.SelectedID)
	}
	return c, nil
}

func (c *Context) FightID() int    { return c.fightID }
func (c *Context) Boss() string    { return c.boss }
func (c *Context) Start() int64    { return c.start }
func (c *Context) End() int64      { return c.end }
func (c *Context) SelectedID() int { return c.selectedID }

// Duration is the fight length in milliseconds.
func (c *Context) Duration() int64 { return c.end - c.start }

// DowntimeStatisticDisabled reports whether the boss fight opts out of the
// downtime statistic (forced downtime phases).
func (c *Context) DowntimeStatisticDisabled() bool { return c.disableDowntime }

// Contains reports whether ts lies within the fight, bounds inclusive.
func (c *Context) Contains(ts int64) bool {
	return ts >= c.start && ts <= c.end
}

// Selected returns the combatant under analysis.
func (c *Context) Selected() Combatant {
	return c.roster[c.selectedID]
}

// Combatant looks up a roster entry.
func (c *Context) Combatant(id int) (Combatant, bool) {
	cb, ok := c.roster[id]
	return cb, ok
}

// Combatants returns the roster in declaration order.
func (c *Context) Combatants() []Combatant {
	out := make([]Combatant, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.roster[id])
	}
	return out
}
