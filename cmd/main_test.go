package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/fightlog/internal/config"
	"github.com/okian/fightlog/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestMainApplicationComponents(t *testing.T) {
	_ = logger.InitJSON(io.Discard)

	convey.Convey("Given a loaded configuration", t, func() {
		_ = os.Setenv("FIGHTLOG_WORKER_COUNT", "2")
		_ = os.Setenv("FIGHTLOG_STORE__DRIVER", "sqlite")
		_ = os.Setenv("FIGHTLOG_STORE__PATH", filepath.Join(t.TempDir(), "reports.db"))
		defer func() {
			_ = os.Unsetenv("FIGHTLOG_WORKER_COUNT")
			_ = os.Unsetenv("FIGHTLOG_STORE__DRIVER")
			_ = os.Unsetenv("FIGHTLOG_STORE__PATH")
		}()

		ctx := context.Background()
		cfg, err := config.Load(ctx)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When the service is built from it", func() {
			svc, err := newService(cfg, logger.Get())
			convey.So(err, convey.ShouldBeNil)
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer func() { _ = svc.Stop(ctx) }()

			convey.Convey("Then the configured values are applied", func() {
				stats := svc.GetStats()
				convey.So(stats["worker_count"], convey.ShouldEqual, 2)
				convey.So(stats["default_profile"], convey.ShouldEqual, "core")
			})

			convey.Convey("Then the mux serves the API and the docs", func() {
				mux := newMux(ctx, svc, cfg)
				for _, path := range []string{"/profiles", "/stats", "/analyses", "/healthz", "/openapi.yaml"} {
					w := httptest.NewRecorder()
					mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
					convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				}
			})

			convey.Convey("Then the metric updaters do not panic", func() {
				convey.So(updateSystemMetrics, convey.ShouldNotPanic)
				convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
			})

			convey.Convey("Then the updater loops return on cancel", func() {
				cctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
				defer cancel()
				convey.So(func() {
					startSystemMetricsUpdater(cctx)
					startServiceMetricsUpdater(cctx, svc)
				}, convey.ShouldNotPanic)
			})
		})
	})

	convey.Convey("Given an unknown store driver", t, func() {
		cfg := config.New(context.Background())
		cfg.Store.Driver = "postgres"

		_, err := newService(cfg, logger.Get())
		convey.So(err, convey.ShouldNotBeNil)
	})
}

func TestRun(t *testing.T) {
	_ = logger.InitJSON(io.Discard)

	convey.Convey("Given a cancelled context", t, func() {
		cfg := config.New(context.Background())
		cfg.Addr = "127.0.0.1:0"
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		convey.Convey("Then run shuts down cleanly", func() {
			convey.So(run(ctx, cfg, logger.Get()), convey.ShouldBeNil)
		})
	})

	convey.Convey("Given a bad listen address", t, func() {
		cfg := config.New(context.Background())
		cfg.Addr = "bad-address"

		convey.Convey("Then run reports the listen error", func() {
			convey.So(run(context.Background(), cfg, logger.Get()), convey.ShouldNotBeNil)
		})
	})

	convey.Convey("Given JSON log format", t, func() {
		convey.So(initLogger("json"), convey.ShouldBeNil)
		_ = logger.InitJSON(io.Discard)
	})
}
