// Command sample-log writes seeded combat logs to a file, or posts them to a
// running fightlog server and waits for the reports.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/fightlog/internal/samplelog"
	"github.com/okian/fightlog/pkg/logger"
)

const (
	defaultLogs     = 1
	defaultDuration = 180_000
	defaultTimeout  = 30 * time.Second
	defaultWait     = 2 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "", "Base URL of a fightlog server; when empty logs are only written")
		logs     = flag.Int("logs", defaultLogs, "Number of logs to generate")
		seed     = flag.Uint64("seed", 1, "Seed of the first log; later logs use consecutive seeds")
		duration = flag.Int64("duration", defaultDuration, "Fight length in milliseconds")
		profile  = flag.String("profile", "affliction", "Profile named by the generated requests")
		workers  = flag.Int("workers", runtime.NumCPU()*2, "Concurrent submissions")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		wait     = flag.Duration("wait", defaultWait, "How long to wait for reports")
		output   = flag.String("output", "", "Write the generated logs to this file")
		verbose  = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := &samplelog.Config{
		BaseURL:      *baseURL,
		Logs:         *logs,
		Seed:         *seed,
		Duration:     *duration,
		Profile:      *profile,
		Workers:      *workers,
		Timeout:      *timeout,
		PollInterval: 500 * time.Millisecond,
		Wait:         *wait,
		OutputFile:   *output,
	}

	if cfg.BaseURL == "" {
		path := cfg.OutputFile
		if path == "" {
			path = "sample_log_" + time.Now().Format("20060102_150405") + ".json"
		}
		if err := samplelog.WriteFile(path, samplelog.Jobs(cfg)); err != nil {
			logger.Get().Error(ctx, "failed to write logs", logger.Error(err))
			os.Exit(1)
		}
		logger.Get().Info(ctx, "logs written", logger.String("file", path), logger.Int("count", cfg.Logs))
		return
	}

	if _, err := samplelog.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "run failed", logger.Error(err))
		stop()
		os.Exit(1)
	}
}
