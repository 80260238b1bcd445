// Package config defines service configuration and its loading.
package config

import (
	"context"
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory job queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of analysis workers; 0 uses the CPU count.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the number of remembered request ids.
	DedupeSize int `koanf:"dedupe_size"`

	// RunTimeout caps a single synchronous analysis.
	RunTimeout time.Duration `koanf:"run_timeout"`

	// MaxListLimit caps GET /analyses?limit.
	MaxListLimit int `koanf:"max_list_limit"`

	// DefaultProfile is used when a request names none.
	DefaultProfile string `koanf:"default_profile"`

	Store Store `koanf:"store"`

	Tracing Tracing `koanf:"tracing"`

	Analysis Analysis `koanf:"analysis"`
}

// Store selects the report store.
type Store struct {
	// Driver is "memory" or "sqlite".
	Driver string `koanf:"driver"`
	Path   string `koanf:"path"`

	// MaxReports bounds the memory store.
	MaxReports int `koanf:"max_reports"`
}

// Tracing configures OTLP span export. An empty endpoint disables export.
type Tracing struct {
	Endpoint    string `koanf:"endpoint"`
	ServiceName string `koanf:"service_name"`
	Insecure    bool   `koanf:"insecure"`
}

// Analysis holds the tunables of the analysis modules.
type Analysis struct {
	GCDBaseMS      int64 `koanf:"gcd_base_ms"`
	GCDMinMS       int64 `koanf:"gcd_min_ms"`
	GCDToleranceMS int64 `koanf:"gcd_tolerance_ms"`
	OffGCD         []int `koanf:"off_gcd"`

	// GCDOverrides maps an ability id to its fixed GCD in ms.
	GCDOverrides map[string]int64 `koanf:"gcd_overrides"`

	Channeled []int `koanf:"channeled"`

	ShowDowntime    bool    `koanf:"show_downtime"`
	DowntimeMinor   float64 `koanf:"downtime_minor"`
	DowntimeAverage float64 `koanf:"downtime_average"`
	DowntimeMajor   float64 `koanf:"downtime_major"`

	StoneformBuffID int `koanf:"stoneform_buff_id"`

	AgonyID          int `koanf:"agony_id"`
	CorruptionID     int `koanf:"corruption_id"`
	SiphonLifeID     int `koanf:"siphon_life_id"`
	SiphonLifeTalent int `koanf:"siphon_life_talent"`

	VulnerableID int `koanf:"vulnerable_id"`
}

// New creates a Config holding the defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:       "info",
		LogFormat:      "text",
		Addr:           ":9080",
		QueueSize:      1024,
		WorkerCount:    runtime.NumCPU(),
		DedupeSize:     50_000,
		RunTimeout:     30 * time.Second,
		MaxListLimit:   100,
		DefaultProfile: "core",
		Store: Store{
			Driver:     "memory",
			Path:       "fightlog.db",
			MaxReports: 10_000,
		},
		Tracing: Tracing{ServiceName: "fightlog"},
		Analysis: Analysis{
			GCDBaseMS:        1500,
			GCDMinMS:         750,
			GCDToleranceMS:   100,
			Channeled:        []int{198590, 234153, 257044},
			ShowDowntime:     true,
			DowntimeMinor:    0.02,
			DowntimeAverage:  0.04,
			DowntimeMajor:    0.06,
			StoneformBuffID:  65116,
			AgonyID:          980,
			CorruptionID:     146739,
			SiphonLifeID:     63106,
			SiphonLifeTalent: 63106,
			VulnerableID:     187131,
		},
	}
}
