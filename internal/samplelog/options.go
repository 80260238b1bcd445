package samplelog

import (
	"github.com/okian/fightlog/internal/domain/encounter"
	"github.com/okian/fightlog/internal/profile"
)

// Options describes the fight to generate.
type Options struct {
	Seed     uint64
	Duration int64 // fight length in milliseconds
	Boss     string
	Profile  string
	Race     encounter.Race
	Talents  []int
	Haste    float64
}

func defaultOptions() Options {
	return Options{
		Seed:     1,
		Duration: 180_000,
		Boss:     "Training Dummy",
		Profile:  profile.Affliction,
		Race:     encounter.RaceDwarf,
		Talents:  []int{SiphonLife},
		Haste:    0.1,
	}
}

// Option applies a configuration option to the generator.
type Option func(*Options)

// WithSeed selects the random sequence.
func WithSeed(seed uint64) Option {
	return func(o *Options) { o.Seed = seed }
}

// WithDuration sets the fight length in milliseconds.
func WithDuration(ms int64) Option {
	return func(o *Options) {
		if ms > 0 {
			o.Duration = ms
		}
	}
}

// WithProfile sets the profile named by the request.
func WithProfile(name string) Option {
	return func(o *Options) { o.Profile = name }
}

// WithRace sets the race of the selected player.
func WithRace(race encounter.Race) Option {
	return func(o *Options) {
		if race != "" {
			o.Race = race
		}
	}
}

// WithTalents replaces the talents of the selected player.
func WithTalents(ids ...int) Option {
	return func(o *Options) { o.Talents = ids }
}

// WithHaste sets the selected player's haste, 0.1 meaning 10%.
func WithHaste(h float64) Option {
	return func(o *Options) {
		if h >= 0 {
			o.Haste = h
		}
	}
}
