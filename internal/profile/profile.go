// Package profile assembles module registries for the supported analysis
// profiles. Every call returns a fresh registry; nothing is shared between
// runs.
package profile

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/okian/fightlog/internal/domain/analyzer"
	"github.com/okian/fightlog/internal/domain/graph"
	"github.com/okian/fightlog/internal/domain/modules"
)

// Profile names.
const (
	Core         = "core"
	Affliction   = "affliction"
	Marksmanship = "marksmanship"
)

// Module keys added by spec profiles.
const (
	KeyAgonyUptime      = "agonyUptime"
	KeyCorruptionUptime = "corruptionUptime"
	KeySiphonLifeUptime = "siphonLifeUptime"
	KeyDotUptimes       = "dotUptimes"
	KeyVulnerableUptime = "vulnerableUptime"
)

// ErrUnknownProfile is returned for names Names does not list.
var ErrUnknownProfile = errors.New("unknown profile")

// Config carries the tunables of every profile.
type Config struct {
	GlobalCooldown modules.GlobalCooldownConfig
	Channeled      []int
	Downtime       modules.AlwaysBeCastingConfig
	Stoneform      modules.StoneformConfig
	Affliction     AfflictionConfig
	Marksmanship   MarksmanshipConfig
}

// AfflictionConfig holds the tracked DoT ids.
type AfflictionConfig struct {
	Agony            int
	Corruption       int
	SiphonLife       int
	SiphonLifeTalent int
}

// MarksmanshipConfig holds the tracked debuff ids.
type MarksmanshipConfig struct {
	Vulnerable int
}

// DefaultConfig returns illustrative defaults.
func DefaultConfig() Config {
	return Config{
		GlobalCooldown: modules.DefaultGlobalCooldownConfig(),
		Channeled:      []int{198590, 234153, 257044},
		Downtime:       modules.DefaultAlwaysBeCastingConfig(),
		Stoneform:      modules.DefaultStoneformConfig(),
		Affliction: AfflictionConfig{
			Agony:            980,
			Corruption:       146739,
			SiphonLife:       63106,
			SiphonLifeTalent: 63106,
		},
		Marksmanship: MarksmanshipConfig{Vulnerable: 187131},
	}
}

type builder func(Config) graph.Registry

var profiles = map[string]builder{
	Core:         core,
	Affliction:   affliction,
	Marksmanship: marksmanship,
}

// Names lists the available profiles, sorted.
func Names() []string {
	return slices.Sorted(maps.Keys(profiles))
}

// Registry returns the module registry of the named profile.
func Registry(name string, cfg Config) (graph.Registry, error) {
	build, ok := profiles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return build(cfg), nil
}

func core(cfg Config) graph.Registry {
	return graph.Registry{
		{Key: modules.KeyBuffs, New: modules.NewBuffs},
		{Key: modules.KeyChanneling, New: modules.NewChanneling, Config: modules.ChannelingConfig{
			Abilities: slices.Clone(cfg.Channeled),
			Ignored:   slices.Clone(cfg.GlobalCooldown.OffGCD),
		}},
		{Key: modules.KeyGlobalCooldown, New: modules.NewGlobalCooldown, Config: cfg.GlobalCooldown,
			Dependencies: []string{modules.KeyChanneling}},
		{Key: modules.KeyAlwaysBeCasting, New: modules.NewAlwaysBeCasting, Config: cfg.Downtime,
			Dependencies: []string{modules.KeyGlobalCooldown, modules.KeyChanneling}},
		{Key: modules.KeyDamageDone, New: modules.NewDamageDone, Config: modules.DamageDoneConfig{}},
		{Key: modules.KeyStoneform, New: modules.NewStoneform, Config: cfg.Stoneform,
			Dependencies: []string{modules.KeyBuffs}},
		{Key: modules.KeyCastSummary, New: modules.NewCastSummary},
	}
}

func affliction(cfg Config) graph.Registry {
	a := cfg.Affliction
	uptime := func(key string, id int, name string, talent int) graph.Entry {
		return graph.Entry{Key: key, New: modules.NewDebuffUptime, Config: modules.DebuffUptimeConfig{
			AbilityID: id,
			Name:      name,
			Talent:    talent,
			Minor:     0.95,
			Average:   0.9,
			Major:     0.8,
		}}
	}
	members := []string{KeyAgonyUptime, KeyCorruptionUptime, KeySiphonLifeUptime}
	return core(cfg).With(
		uptime(KeyAgonyUptime, a.Agony, "Agony", 0),
		uptime(KeyCorruptionUptime, a.Corruption, "Corruption", 0),
		uptime(KeySiphonLifeUptime, a.SiphonLife, "Siphon Life", a.SiphonLifeTalent),
		graph.Entry{Key: KeyDotUptimes, New: modules.NewUptimeGroup, Dependencies: members,
			Config: modules.UptimeGroupConfig{Label: "DoT uptimes", Position: analyzer.Core(3), Members: members}},
	)
}

func marksmanship(cfg Config) graph.Registry {
	return core(cfg).With(
		graph.Entry{Key: modules.KeyDamageDone, New: modules.NewDamageDone, Config: modules.DamageDoneConfig{ShowStatistic: true}},
		graph.Entry{Key: KeyVulnerableUptime, New: modules.NewDebuffUptime, Config: modules.DebuffUptimeConfig{
			AbilityID:  cfg.Marksmanship.Vulnerable,
			Name:       "Vulnerable",
			Standalone: true,
			Position:   analyzer.Core(2),
			Minor:      0.8,
			Average:    0.75,
			Major:      0.7,
		}},
	)
}
