package config_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/fightlog/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 1024)
				convey.So(cfg.Analysis.GCDBaseMS, convey.ShouldEqual, 1500)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			t.Setenv("FIGHTLOG_ADDR", ":8080")
			t.Setenv("FIGHTLOG_QUEUE_SIZE", "64")
			t.Setenv("FIGHTLOG_WORKER_COUNT", "3")
			t.Setenv("FIGHTLOG_RUN_TIMEOUT", "5s")
			t.Setenv("FIGHTLOG_STORE__DRIVER", "sqlite")
			t.Setenv("FIGHTLOG_STORE__PATH", "/tmp/reports.db")
			t.Setenv("FIGHTLOG_ANALYSIS__GCD_BASE_MS", "1000")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 3)
				convey.So(cfg.RunTimeout, convey.ShouldEqual, 5*time.Second)
				convey.So(cfg.Store.Driver, convey.ShouldEqual, "sqlite")
				convey.So(cfg.Store.Path, convey.ShouldEqual, "/tmp/reports.db")
				convey.So(cfg.Analysis.GCDBaseMS, convey.ShouldEqual, 1000)
				convey.So(cfg.Analysis.GCDMinMS, convey.ShouldEqual, 750)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			path := writeConfig(t, `
addr: ":9090"
queue_size: 300
default_profile: affliction
analysis:
  off_gcd: [1, 2]
  gcd_overrides:
    "101": 1000
  downtime_major: 0.1
`)
			t.Setenv("FIGHTLOG_CONFIG", path)
			t.Setenv("FIGHTLOG_ADDR", ":8080")

			cfg, err := config.Load(ctx)

			convey.Convey("Then the file fills in and env vars still win", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 300)
				convey.So(cfg.DefaultProfile, convey.ShouldEqual, "affliction")
				convey.So(cfg.Analysis.OffGCD, convey.ShouldResemble, []int{1, 2})
				convey.So(cfg.Analysis.GCDOverrides["101"], convey.ShouldEqual, 1000)
				convey.So(cfg.Analysis.DowntimeMajor, convey.ShouldEqual, 0.1)
				convey.So(cfg.Analysis.DowntimeMinor, convey.ShouldEqual, 0.02)
				convey.So(cfg.DedupeSize, convey.ShouldEqual, 50_000)
			})
		})

		convey.Convey("When loading config with an invalid YAML file", func() {
			t.Setenv("FIGHTLOG_CONFIG", writeConfig(t, `invalid: yaml: content: [`))

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(err, convey.ShouldWrap, config.ErrLoadConfig)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with a non-existent file", func() {
			t.Setenv("FIGHTLOG_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid values", func() {
			cases := map[string]string{
				"FIGHTLOG_ADDR":            "",
				"FIGHTLOG_QUEUE_SIZE":      "0",
				"FIGHTLOG_DEFAULT_PROFILE": "holy",
				"FIGHTLOG_STORE__DRIVER":   "postgres",
				"FIGHTLOG_LOG_FORMAT":      "xml",
			}
			for key, val := range cases {
				clearConfigEnvVars()
				t.Setenv(key, val)

				cfg, err := config.Load(ctx)

				convey.So(err, convey.ShouldWrap, config.ErrInvalidConfig)
				convey.So(cfg, convey.ShouldBeNil)
				_ = os.Unsetenv(key)
			}
		})
	})
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "FIGHTLOG_") {
			_ = os.Unsetenv(key)
		}
	}
}
