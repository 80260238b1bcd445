package config_test

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/okian/fightlog/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1024)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 50_000)
			convey.So(cfg.RunTimeout, convey.ShouldEqual, 30*time.Second)
			convey.So(cfg.DefaultProfile, convey.ShouldEqual, "core")
			convey.So(cfg.Store.Driver, convey.ShouldEqual, "memory")
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then the analysis block matches the module defaults", func() {
			p, err := cfg.Analysis.Profile()
			convey.So(err, convey.ShouldBeNil)
			convey.So(p.GlobalCooldown.Base, convey.ShouldEqual, 1500)
			convey.So(p.GlobalCooldown.Min, convey.ShouldEqual, 750)
			convey.So(p.Downtime.Minor, convey.ShouldEqual, 0.02)
			convey.So(p.Stoneform.BuffID, convey.ShouldEqual, 65116)
			convey.So(p.Affliction.Agony, convey.ShouldEqual, 980)
			convey.So(p.Channeled, convey.ShouldResemble, []int{198590, 234153, 257044})
		})
	})

	convey.Convey("Given an analysis block with overrides", t, func() {
		a := config.New(context.Background()).Analysis
		a.GCDOverrides = map[string]int64{"101": 1000}

		convey.Convey("Then override keys become ability ids", func() {
			p, err := a.Profile()
			convey.So(err, convey.ShouldBeNil)
			convey.So(p.GlobalCooldown.Overrides[101], convey.ShouldEqual, 1000)
		})

		convey.Convey("Then a non-numeric key is rejected", func() {
			a.GCDOverrides = map[string]int64{"agony": 1000}
			_, err := a.Profile()
			convey.So(err, convey.ShouldWrap, config.ErrInvalidAnalysis)
			convey.So(err, convey.ShouldWrap, config.ErrInvalidConfig)
		})

		convey.Convey("Then inverted bounds are rejected", func() {
			a.GCDMinMS = 2000
			_, err := a.Profile()
			convey.So(err, convey.ShouldWrap, config.ErrInvalidConfig)

			a = config.New(context.Background()).Analysis
			a.DowntimeMinor = 0.5
			_, err = a.Profile()
			convey.So(err, convey.ShouldWrap, config.ErrInvalidConfig)
		})
	})
}
