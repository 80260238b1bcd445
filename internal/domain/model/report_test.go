package model_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/fightlog/internal/domain/dispatch"
	"github.com/okian/fightlog/internal/domain/encounter"
	"github.com/okian/fightlog/internal/domain/model"
	"github.com/okian/fightlog/internal/domain/results"
	"github.com/smartystreets/goconvey/convey"
)

func TestReport(t *testing.T) {
	convey.Convey("Given a submitted job", t, func() {
		job := model.Job{ID: "a1", Profile: "core", Encounter: encounter.Spec{FightID: 7}}
		submitted := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		r := model.NewReport(job, submitted)

		convey.Convey("When the report is created", func() {
			convey.Convey("Then it is queued", func() {
				convey.So(r.Status, convey.ShouldEqual, model.StatusQueued)
				convey.So(r.Status.Terminal(), convey.ShouldBeFalse)
				convey.So(r.FightID, convey.ShouldEqual, 7)
				convey.So(r.SubmittedAt, convey.ShouldEqual, submitted)
			})
		})

		convey.Convey("When the analysis completes", func() {
			res := &results.Result{}
			done := r.Complete(res, dispatch.Stats{Real: 3}, submitted.Add(time.Second))

			convey.Convey("Then the result is attached and the original is untouched", func() {
				convey.So(done.Status, convey.ShouldEqual, model.StatusDone)
				convey.So(done.Status.Terminal(), convey.ShouldBeTrue)
				convey.So(done.Result, convey.ShouldEqual, res)
				convey.So(done.Stats.Real, convey.ShouldEqual, 3)
				convey.So(r.Result, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the analysis fails", func() {
			failed := r.Fail(errors.New("cycle"), dispatch.Stats{}, submitted)

			convey.Convey("Then the error is kept", func() {
				convey.So(failed.Status, convey.ShouldEqual, model.StatusFailed)
				convey.So(failed.Error, convey.ShouldEqual, "cycle")
				convey.So(failed.Result, convey.ShouldBeNil)
			})
		})
	})
}
