package tracing_test

import (
	"context"
	"testing"

	"github.com/okian/fightlog/pkg/tracing"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSetup(t *testing.T) {
	Convey("Given no collector endpoint", t, func() {
		shutdown, err := tracing.Setup(context.Background(), tracing.Options{ServiceName: "fightlog-test"})

		Convey("Then setup is a no-op", func() {
			So(err, ShouldBeNil)
			So(shutdown(context.Background()), ShouldBeNil)
			_, span := tracing.Tracer().Start(context.Background(), "noop")
			So(span.SpanContext().IsValid(), ShouldBeFalse)
			span.End()
		})
	})

	Convey("Given an unreachable collector endpoint", t, func() {
		shutdown, err := tracing.Setup(context.Background(), tracing.Options{
			Endpoint:    "http://192.0.2.1:4318",
			ServiceName: "fightlog-test",
			Insecure:    true,
		})

		Convey("Then spans are recorded and shutdown still returns", func() {
			So(err, ShouldBeNil)
			_, span := tracing.Tracer().Start(context.Background(), "analyze")
			So(span.SpanContext().IsValid(), ShouldBeTrue)
			span.End()
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_ = shutdown(ctx)
		})
	})
}
