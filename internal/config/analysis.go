package config

import (
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/okian/fightlog/internal/domain/modules"
	"github.com/okian/fightlog/internal/profile"
)

// Profile converts the analysis block into profile tunables.
func (a Analysis) Profile() (profile.Config, error) {
	cfg := profile.DefaultConfig()

	if a.GCDBaseMS <= 0 || a.GCDMinMS <= 0 || a.GCDMinMS > a.GCDBaseMS {
		return cfg, fmt.Errorf("%w: gcd bounds base=%d min=%d", ErrInvalidAnalysis, a.GCDBaseMS, a.GCDMinMS)
	}
	if a.DowntimeMinor > a.DowntimeAverage || a.DowntimeAverage > a.DowntimeMajor {
		return cfg, fmt.Errorf("%w: downtime thresholds must be ascending", ErrInvalidAnalysis)
	}

	overrides := make(map[int]int64, len(a.GCDOverrides))
	for _, key := range slices.Sorted(maps.Keys(a.GCDOverrides)) {
		id, err := strconv.Atoi(key)
		if err != nil {
			return cfg, fmt.Errorf("%w: gcd_overrides key %q is not an ability id", ErrInvalidAnalysis, key)
		}
		overrides[id] = a.GCDOverrides[key]
	}

	cfg.GlobalCooldown = modules.GlobalCooldownConfig{
		Base:      a.GCDBaseMS,
		Min:       a.GCDMinMS,
		OffGCD:    slices.Clone(a.OffGCD),
		Overrides: overrides,
		Tolerance: a.GCDToleranceMS,
	}
	cfg.Channeled = slices.Clone(a.Channeled)
	cfg.Downtime = modules.AlwaysBeCastingConfig{
		ShowStatistic: a.ShowDowntime,
		Minor:         a.DowntimeMinor,
		Average:       a.DowntimeAverage,
		Major:         a.DowntimeMajor,
	}
	cfg.Stoneform.BuffID = a.StoneformBuffID
	cfg.Affliction = profile.AfflictionConfig{
		Agony:            a.AgonyID,
		Corruption:       a.CorruptionID,
		SiphonLife:       a.SiphonLifeID,
		SiphonLifeTalent: a.SiphonLifeTalent,
	}
	cfg.Marksmanship = profile.MarksmanshipConfig{Vulnerable: a.VulnerableID}
	return cfg, nil
}
