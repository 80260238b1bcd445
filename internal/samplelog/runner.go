package samplelog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/okian/fightlog/internal/domain/model"
	"github.com/okian/fightlog/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const (
	directoryPermission = 0o750
	filePermission      = 0o600
	defaultPollInterval = 500 * time.Millisecond
)

// ErrIncomplete is returned when reports are still pending at the deadline.
var ErrIncomplete = errors.New("analyses still pending")

// Config drives a load run against a server.
type Config struct {
	BaseURL      string
	Logs         int
	Seed         uint64
	Duration     int64
	Profile      string
	Workers      int
	Timeout      time.Duration
	PollInterval time.Duration
	Wait         time.Duration
	OutputFile   string
}

// Stats summarizes a load run.
type Stats struct {
	Generated  int
	Submitted  int
	Duplicates int
	Rejected   int
	Done       int
	Failed     int
	Pending    int
	Degraded   int
	Duration   time.Duration
}

// Jobs generates cfg.Logs requests with consecutive seeds.
func Jobs(cfg *Config) []model.Job {
	jobs := make([]model.Job, cfg.Logs)
	for i := range jobs {
		jobs[i] = NewGenerator(
			WithSeed(cfg.Seed+uint64(i)),
			WithDuration(cfg.Duration),
			WithProfile(cfg.Profile),
		).Generate()
	}
	return jobs
}

// Run generates logs, submits them and waits for their reports.
func Run(ctx context.Context, cfg *Config) (Stats, error) {
	log := logger.Get().Named("sample-log")
	start := time.Now()
	client := NewClient(cfg.BaseURL, cfg.Timeout)

	if err := client.Health(ctx); err != nil {
		return Stats{}, fmt.Errorf("service health check failed: %w", err)
	}

	jobs := Jobs(cfg)
	stats := Stats{Generated: len(jobs)}
	log.Info(ctx, "generated logs", logger.Int("count", len(jobs)), logger.Int64("duration_ms", cfg.Duration))

	if cfg.OutputFile != "" {
		if err := WriteFile(cfg.OutputFile, jobs); err != nil {
			log.Warn(ctx, "failed to save logs", logger.Error(err))
		}
	}

	ids := submit(ctx, client, cfg.Workers, jobs, &stats, log)
	err := wait(ctx, client, cfg, ids, &stats)

	stats.Duration = time.Since(start)
	log.Info(ctx, "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("duplicates", stats.Duplicates),
		logger.Int("rejected", stats.Rejected),
		logger.Int("done", stats.Done),
		logger.Int("failed", stats.Failed),
		logger.Int("pending", stats.Pending),
		logger.Int("degraded_modules", stats.Degraded),
		logger.String("duration", stats.Duration.String()),
	)
	return stats, err
}

func submit(ctx context.Context, client *Client, workers int, jobs []model.Job, stats *Stats, log logger.Logger) []string {
	var submitted, duplicates, rejected atomic.Int64
	ids := make([]string, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i := range jobs {
		g.Go(func() error {
			ack, err := client.Submit(gctx, jobs[i])
			if err != nil {
				rejected.Add(1)
				log.Debug(gctx, "submit failed", logger.String("id", jobs[i].ID), logger.Error(err))
				return nil
			}
			submitted.Add(1)
			if ack.Duplicate {
				duplicates.Add(1)
			}
			ids[i] = ack.ID
			return nil
		})
	}
	_ = g.Wait()

	stats.Submitted = int(submitted.Load())
	stats.Duplicates = int(duplicates.Load())
	stats.Rejected = int(rejected.Load())
	return ids
}

// wait polls every submitted report until it is terminal or cfg.Wait runs out.
func wait(ctx context.Context, client *Client, cfg *Config, ids []string, stats *Stats) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.Wait)
	defer cancel()

	pending := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			pending[id] = struct{}{}
		}
	}

	interval := cfg.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for len(pending) > 0 {
		for id := range pending {
			rep, err := client.Report(ctx, id)
			if err != nil || !rep.Status.Terminal() {
				continue
			}
			delete(pending, id)
			if rep.Status == model.StatusDone {
				stats.Done++
				if rep.Result != nil {
					stats.Degraded += len(rep.Result.Degraded)
				}
			} else {
				stats.Failed++
			}
		}
		if len(pending) == 0 {
			break
		}
		select {
		case <-ctx.Done():
			stats.Pending = len(pending)
			return fmt.Errorf("%w: %d", ErrIncomplete, len(pending))
		case <-ticker.C:
		}
	}
	return nil
}

// WriteFile saves jobs as an indented JSON array. A single job is written
// as an object so it can be fed straight to the analyze command.
func WriteFile(path string, jobs []model.Job) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	var v any = jobs
	if len(jobs) == 1 {
		v = jobs[0]
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal logs: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), filePermission); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
