package worker_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/okian/fightlog/internal/adapters/mq/queue"
	"github.com/okian/fightlog/internal/adapters/mq/worker"
	"github.com/okian/fightlog/internal/domain/dispatch"
	"github.com/okian/fightlog/internal/domain/model"
	"github.com/okian/fightlog/internal/domain/results"
	"github.com/okian/fightlog/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

var errNoReport = errors.New("no report")

type mockQueue struct {
	jobs chan model.Job
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan model.Job, 10)}
}

func (q *mockQueue) Dequeue(context.Context) <-chan model.Job { return q.jobs }

func (q *mockQueue) Close() error {
	close(q.jobs)
	return nil
}

type mockRunner struct {
	fail map[string]error
}

func (r *mockRunner) Run(_ context.Context, job model.Job) (*results.Result, dispatch.Stats, error) {
	if err, ok := r.fail[job.ID]; ok {
		return nil, dispatch.Stats{Real: 1}, err
	}
	return &results.Result{}, dispatch.Stats{Real: len(job.Events)}, nil
}

type mockUpdater struct {
	mu      sync.Mutex
	reports map[string]model.Report
	history map[string][]model.Status
	saveErr error
}

func newMockUpdater() *mockUpdater {
	return &mockUpdater{reports: map[string]model.Report{}, history: map[string][]model.Status{}}
}

func (u *mockUpdater) Get(_ context.Context, id string) (model.Report, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	r, ok := u.reports[id]
	if !ok {
		return model.Report{}, errNoReport
	}
	return r, nil
}

func (u *mockUpdater) Save(_ context.Context, r model.Report) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.saveErr != nil {
		return u.saveErr
	}
	u.reports[r.ID] = r
	u.history[r.ID] = append(u.history[r.ID], r.Status)
	return nil
}

func (u *mockUpdater) report(id string) (model.Report, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	r, ok := u.reports[id]
	return r, ok && r.Status.Terminal()
}

func (u *mockUpdater) statuses(id string) []model.Status {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]model.Status(nil), u.history[id]...)
}

func waitFor(u *mockUpdater, id string) (model.Report, bool) {
	deadline := time.After(2 * time.Second)
	for {
		if r, ok := u.report(id); ok {
			return r, true
		}
		select {
		case <-deadline:
			return model.Report{}, false
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a running worker", t, func() {
		q := newMockQueue()
		runner := &mockRunner{fail: map[string]error{"bad": errors.New("cyclic dependency")}}
		updater := newMockUpdater()
		clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		w := worker.NewInMemoryWorker(q, runner, updater,
			worker.WithName("w-test"),
			worker.WithLogger(logger.NewWithWriter(io.Discard)),
			worker.WithClock(func() time.Time { return clock }),
		)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When a job with a queued report succeeds", func() {
			submitted := clock.Add(-time.Minute)
			job := model.Job{ID: "ok", Profile: "core"}
			_ = updater.Save(ctx, model.NewReport(job, submitted))
			q.jobs <- job

			r, done := waitFor(updater, "ok")

			convey.Convey("Then the report goes through running to done", func() {
				convey.So(done, convey.ShouldBeTrue)
				convey.So(r.Status, convey.ShouldEqual, model.StatusDone)
				convey.So(r.Result, convey.ShouldNotBeNil)
				convey.So(r.SubmittedAt, convey.ShouldEqual, submitted)
				convey.So(r.CompletedAt, convey.ShouldEqual, clock)
				convey.So(updater.statuses("ok"), convey.ShouldResemble,
					[]model.Status{model.StatusQueued, model.StatusRunning, model.StatusDone})
			})
		})

		convey.Convey("When the analysis fails", func() {
			q.jobs <- model.Job{ID: "bad", Profile: "core"}

			r, done := waitFor(updater, "bad")

			convey.Convey("Then the failure is stored on the report", func() {
				convey.So(done, convey.ShouldBeTrue)
				convey.So(r.Status, convey.ShouldEqual, model.StatusFailed)
				convey.So(r.Error, convey.ShouldEqual, "cyclic dependency")
				convey.So(r.Stats.Real, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the worker is shut down", func() {
			err := w.Shutdown(context.Background())

			convey.Convey("Then it stops cleanly", func() {
				convey.So(err, convey.ShouldBeNil)
			})
		})
	})

	convey.Convey("Given a worker whose store rejects saves", t, func() {
		q := newMockQueue()
		updater := newMockUpdater()
		updater.saveErr = errors.New("disk full")
		w := worker.NewInMemoryWorker(q, &mockRunner{}, updater, worker.WithLogger(logger.NewWithWriter(io.Discard)))
		ctx, cancel := context.WithCancel(context.Background())

		go w.Run(ctx)
		q.jobs <- model.Job{ID: "x"}
		cancel()

		convey.Convey("Then the worker keeps running until cancelled and stops", func() {
			convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool on a real queue", t, func() {
		_ = logger.InitJSON(io.Discard)
		q := queue.NewInMemoryQueue(queue.WithCapacity(32))
		updater := newMockUpdater()
		pool := worker.NewPool(4, q, &mockRunner{}, updater)
		ctx := context.Background()
		pool.Start(ctx)

		ids := []string{"a", "b", "c", "d", "e", "f"}
		for _, id := range ids {
			convey.So(q.Enqueue(ctx, model.Job{ID: id}), convey.ShouldBeNil)
		}

		convey.Convey("Then every job is completed", func() {
			convey.So(pool.Size(), convey.ShouldEqual, 4)
			for _, id := range ids {
				r, ok := waitFor(updater, id)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(r.Status, convey.ShouldEqual, model.StatusDone)
			}
			convey.So(pool.Shutdown(ctx), convey.ShouldBeNil)
			convey.So(q.IsClosed(), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given a non-positive worker count", t, func() {
		_ = logger.InitJSON(io.Discard)
		pool := worker.NewPool(0, newMockQueue(), &mockRunner{}, newMockUpdater())

		convey.Convey("Then the pool sizes itself to the CPU count", func() {
			convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
		})
	})
}
