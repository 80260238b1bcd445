package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/okian/fightlog/internal/adapters/repository"
	service "github.com/okian/fightlog/internal/app"
	"github.com/okian/fightlog/internal/domain/model"
	"github.com/okian/fightlog/internal/samplelog"
	"github.com/okian/fightlog/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func newService(opts ...service.Option) *service.Service {
	_ = logger.InitJSON(io.Discard)
	base := []service.Option{
		service.WithLogger(logger.NewWithWriter(io.Discard)),
		service.WithWorkerCount(2),
		service.WithQueueSize(16),
	}
	return service.New(append(base, opts...)...)
}

func sample(seed uint64, profile string) service.Request {
	return samplelog.NewGenerator(
		samplelog.WithSeed(seed),
		samplelog.WithDuration(60_000),
		samplelog.WithProfile(profile),
	).Generate()
}

// waitFor polls the report until it is terminal.
func waitFor(svc *service.Service, id string) model.Report {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rep, err := svc.Report(context.Background(), id)
		if err == nil && rep.Status.Terminal() {
			return rep
		}
		time.Sleep(10 * time.Millisecond)
	}
	rep, _ := svc.Report(context.Background(), id)
	return rep
}

func TestAnalyze(t *testing.T) {
	Convey("Given a service", t, func() {
		svc := newService()
		ctx := context.Background()

		Convey("When a sample affliction log is analyzed", func() {
			req := sample(3, "affliction")
			res, stats, err := svc.Analyze(ctx, req)

			Convey("Then the run succeeds with every module healthy", func() {
				So(err, ShouldBeNil)
				So(res, ShouldNotBeNil)
				So(res.Degraded, ShouldBeEmpty)
				So(stats.Real, ShouldEqual, len(req.Events))
				So(stats.Synthetic, ShouldBeGreaterThan, 0)
				So(len(res.Statistics), ShouldBeGreaterThan, 0)
			})

			Convey("Then the built-in tabs come last", func() {
				So(len(res.Tabs), ShouldBeGreaterThanOrEqualTo, 1)
				last := res.Tabs[len(res.Tabs)-1]
				So(last.Title, ShouldNotBeEmpty)
			})
		})

		Convey("When the request names no profile", func() {
			req := sample(4, "")
			_, _, err := svc.Analyze(ctx, req)

			Convey("Then the default profile is used", func() {
				So(err, ShouldBeNil)
			})
		})

		Convey("When the profile is unknown", func() {
			_, _, err := svc.Analyze(ctx, sample(5, "frost"))

			Convey("Then the request is invalid", func() {
				So(err, ShouldWrap, service.ErrInvalidRequest)
			})
		})

		Convey("When a record is malformed", func() {
			req := sample(6, "core")
			req.Events = append(req.Events, json.RawMessage(`{"type":"cast"}`))
			_, _, err := svc.Analyze(ctx, req)

			Convey("Then the request is invalid", func() {
				So(err, ShouldWrap, service.ErrInvalidRequest)
			})
		})

		Convey("When the records are out of order", func() {
			req := sample(7, "core")
			req.Events[0], req.Events[len(req.Events)-1] = req.Events[len(req.Events)-1], req.Events[0]
			_, _, err := svc.Analyze(ctx, req)

			Convey("Then the whole run fails", func() {
				So(err, ShouldWrap, service.ErrInvalidRequest)
			})
		})

		Convey("When the encounter is invalid", func() {
			req := sample(8, "core")
			req.Encounter.End = req.Encounter.Start - 1
			_, _, err := svc.Analyze(ctx, req)

			Convey("Then the request is invalid", func() {
				So(err, ShouldWrap, service.ErrInvalidRequest)
			})
		})
	})

	Convey("Given a service with a tiny run timeout", t, func() {
		svc := newService(service.WithRunTimeout(time.Nanosecond))

		Convey("When a log is analyzed", func() {
			_, _, err := svc.Analyze(context.Background(), sample(9, "core"))

			Convey("Then the deadline is reported", func() {
				So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
			})
		})
	})
}

func TestAnalyzeBatch(t *testing.T) {
	Convey("Given a batch with one bad request", t, func() {
		svc := newService()
		reqs := []service.Request{sample(10, "core"), sample(11, "nope"), sample(12, "marksmanship")}

		out := svc.AnalyzeBatch(context.Background(), reqs)

		Convey("Then each request gets its own outcome in order", func() {
			So(out, ShouldHaveLength, 3)
			So(out[0].ID, ShouldEqual, reqs[0].ID)
			So(out[0].Err, ShouldBeNil)
			So(out[0].Result, ShouldNotBeNil)
			So(out[1].Err, ShouldWrap, service.ErrInvalidRequest)
			So(out[2].Err, ShouldBeNil)
		})
	})
}

func TestSubmit(t *testing.T) {
	Convey("Given a service that is not started", t, func() {
		svc := newService()

		Convey("Then submissions are refused", func() {
			_, _, err := svc.Submit(context.Background(), sample(1, "core"))
			So(err, ShouldWrap, service.ErrNotStarted)
		})

		Convey("Then stats report it stopped", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["profiles"], ShouldResemble, []string{"affliction", "core", "marksmanship"})
		})
	})

	Convey("Given a started service", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		svc := newService(service.WithStore(store))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When a log is submitted", func() {
			req := sample(20, "affliction")
			id, dup, err := svc.Submit(ctx, req)
			So(err, ShouldBeNil)
			So(dup, ShouldBeFalse)
			So(id, ShouldEqual, req.ID)

			Convey("Then its report completes", func() {
				rep := waitFor(svc, id)
				So(rep.Status, ShouldEqual, model.StatusDone)
				So(rep.Result, ShouldNotBeNil)
				So(rep.Stats.Real, ShouldEqual, len(req.Events))
				So(rep.FightID, ShouldEqual, req.Encounter.FightID)
				So(rep.CompletedAt.IsZero(), ShouldBeFalse)
			})

			Convey("Then submitting it again is a duplicate", func() {
				again, dup, err := svc.Submit(ctx, req)
				So(err, ShouldBeNil)
				So(dup, ShouldBeTrue)
				So(again, ShouldEqual, id)
			})

			Convey("Then it is listed", func() {
				waitFor(svc, id)
				reps, err := svc.Reports(ctx, 10)
				So(err, ShouldBeNil)
				So(reps, ShouldHaveLength, 1)
				So(reps[0].ID, ShouldEqual, id)
			})
		})

		Convey("When a request has no id or profile", func() {
			req := sample(21, "")
			req.ID = ""
			id, _, err := svc.Submit(ctx, req)

			Convey("Then an id is assigned and the default profile recorded", func() {
				So(err, ShouldBeNil)
				So(id, ShouldNotBeEmpty)
				rep := waitFor(svc, id)
				So(rep.Profile, ShouldEqual, "core")
				So(rep.Status, ShouldEqual, model.StatusDone)
			})
		})

		Convey("When a request fails analysis", func() {
			req := sample(22, "core")
			req.Events = append(req.Events, json.RawMessage(`[]`))
			id, _, err := svc.Submit(ctx, req)
			So(err, ShouldBeNil)

			Convey("Then the failure is stored on the report", func() {
				rep := waitFor(svc, id)
				So(rep.Status, ShouldEqual, model.StatusFailed)
				So(rep.Error, ShouldContainSubstring, "invalid analysis request")
			})
		})

		Convey("When the profile is unknown", func() {
			_, _, err := svc.Submit(ctx, sample(23, "frost"))

			Convey("Then nothing is queued", func() {
				So(err, ShouldWrap, service.ErrInvalidRequest)
				So(store.Count(ctx), ShouldEqual, 0)
			})
		})

		Convey("When a report is missing", func() {
			_, err := svc.Report(ctx, "nope")

			Convey("Then the store error is returned", func() {
				So(err, ShouldWrap, repository.ErrNotFound)
			})
		})

		Convey("Then stats describe the running service", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["worker_count"], ShouldEqual, 2)
			So(stats, ShouldContainKey, "queue_len")
			So(stats, ShouldContainKey, "stored_reports")
		})
	})
}
