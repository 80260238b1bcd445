// Package modules contains the reference analysis modules: aura and channel
// tracking, global cooldown synthesis, active time, damage, racials, debuff
// uptimes and cast summaries.
package modules

import (
	"errors"
	"fmt"

	"github.com/okian/fightlog/internal/domain/analyzer"
	"github.com/okian/fightlog/internal/domain/graph"
)

// Registry keys of the reference modules.
const (
	KeyBuffs           = "buffs"
	KeyChanneling      = "channeling"
	KeyGlobalCooldown  = "globalCooldown"
	KeyAlwaysBeCasting = "alwaysBeCasting"
	KeyDamageDone      = "damageDone"
	KeyStoneform       = "stoneform"
	KeyCastSummary     = "castSummary"
)

// Sentinel error kinds for this package.
var (
	ErrConfigType = errors.New("unexpected module config type")
)

// configOr returns the entry config as T, or def when none was supplied.
func configOr[T any](env analyzer.Env, def T) (T, error) {
	switch c := env.Config.(type) {
	case nil:
		return def, nil
	case T:
		return c, nil
	case *T:
		if c == nil {
			return def, nil
		}
		return *c, nil
	default:
		var zero T
		return zero, fmt.Errorf("%w: %s got %T", ErrConfigType, env.Key, env.Config)
	}
}

func toSet(ids []int) map[int]struct{} {
	set := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Compile-time checks.
var (
	_ analyzer.Module             = (*AlwaysBeCasting)(nil)
	_ analyzer.StatisticProducer  = (*AlwaysBeCasting)(nil)
	_ analyzer.SuggestionProducer = (*AlwaysBeCasting)(nil)
	_ analyzer.StatisticProducer  = (*Stoneform)(nil)
	_ analyzer.StatisticProducer  = (*DamageDone)(nil)
	_ analyzer.SuggestionProducer = (*DebuffUptime)(nil)
	_ analyzer.StatisticProducer  = (*DebuffUptime)(nil)
	_ analyzer.StatisticProducer  = (*UptimeGroup)(nil)
	_ analyzer.TabProducer        = (*CastSummary)(nil)
	_ graph.Constructor           = NewBuffs
)
