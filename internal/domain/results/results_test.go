package results_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/okian/fightlog/internal/domain/analyzer"
	"github.com/okian/fightlog/internal/domain/dispatch"
	"github.com/okian/fightlog/internal/domain/encounter"
	"github.com/okian/fightlog/internal/domain/event"
	"github.com/okian/fightlog/internal/domain/graph"
	"github.com/okian/fightlog/internal/domain/results"
	"github.com/okian/fightlog/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

// counter counts damage events and reports all three outputs.
type counter struct {
	analyzer.Base
	hits     int
	position analyzer.Position
	queried  *int
}

func (c *counter) Suggestions() []analyzer.Suggestion {
	*c.queried++
	return []analyzer.Suggestion{{Text: "hit less", Importance: analyzer.ImportanceMinor}}
}

func (c *counter) Statistic() (analyzer.Statistic, bool) {
	return analyzer.Statistic{Position: c.position, Label: "Hits", Value: analyzer.FormatThousands(float64(c.hits))}, true
}

func (c *counter) Tab() (analyzer.Tab, bool) {
	return analyzer.Tab{Title: "Hits", URL: "hits", Content: map[string]int{"hits": c.hits}}, true
}

type statOnly struct {
	analyzer.Base
	boom bool
}

func (s *statOnly) Statistic() (analyzer.Statistic, bool) {
	if s.boom {
		panic("division by zero")
	}
	return analyzer.Statistic{Position: analyzer.Core(1), Label: "Major first", Value: "!"}, true
}

func counterEntry(key string, pos analyzer.Position, active bool, failOn int, queried *int) graph.Entry {
	return graph.Entry{Key: key, New: func(env analyzer.Env, _ graph.Deps) (analyzer.Module, error) {
		c := &counter{position: pos, queried: queried}
		c.Init(env)
		c.SetActive(active)
		c.On(event.KindDamage, func(ev event.Event) error {
			c.hits++
			if failOn > 0 && c.hits == failOn {
				return errors.New("corrupt state")
			}
			return nil
		})
		return c, nil
	}}
}

func statEntry(key string, boom bool) graph.Entry {
	return graph.Entry{Key: key, New: func(env analyzer.Env, _ graph.Deps) (analyzer.Module, error) {
		s := &statOnly{boom: boom}
		s.Init(env)
		return s, nil
	}}
}

func run(reg graph.Registry, opts ...results.Option) (*results.Result, *results.Aggregator) {
	enc, err := encounter.New(encounter.Spec{
		Start: 0, End: 100, SelectedID: 1,
		Combatants: []encounter.CombatantSpec{{ID: 1, Name: "Brann", Talents: []int{3, 1}}},
	})
	if err != nil {
		panic(err)
	}
	quiet := logger.NewWithWriter(io.Discard)
	g, err := graph.Build(context.Background(), reg, enc, graph.WithLogger(quiet))
	if err != nil {
		panic(err)
	}
	events := []event.Event{
		{Timestamp: 1, Kind: event.KindDamage, SourceID: 1},
		{Timestamp: 2, Kind: event.KindDamage, SourceID: 1},
	}
	if _, err := dispatch.New(g, nil).Run(context.Background(), events); err != nil {
		panic(err)
	}
	agg := results.NewAggregator(g, append([]results.Option{results.WithLogger(quiet)}, opts...)...)
	res, err := agg.Seal(context.Background())
	if err != nil {
		panic(err)
	}
	return res, agg
}

func TestSeal(t *testing.T) {
	Convey("Given active, inactive and degraded modules", t, func() {
		queried := 0
		res, agg := run(graph.Registry{
			counterEntry("alpha", analyzer.Optional(5), true, 0, &queried),
			counterEntry("hidden", analyzer.Core(1), false, 0, &queried),
			counterEntry("flaky", analyzer.Core(2), true, 2, &queried),
			statEntry("beta", false),
		})

		Convey("Then active modules are queried once, in construction order", func() {
			So(queried, ShouldEqual, 1)
			So(res.Suggestions, ShouldHaveLength, 1)
			So(res.Suggestions[0].Source, ShouldEqual, "alpha")
			So(res.Statistics, ShouldHaveLength, 2)
			So(res.Statistics[0].Source, ShouldEqual, "alpha")
			So(res.Statistics[0].Value, ShouldEqual, "2")
			So(res.Statistics[1].Source, ShouldEqual, "beta")
		})

		Convey("Then inactive modules never appear", func() {
			blob, err := json.Marshal(res)
			So(err, ShouldBeNil)
			So(string(blob), ShouldNotContainSubstring, "hidden")
		})

		Convey("Then degraded modules get a marker per producer", func() {
			So(res.Degraded, ShouldResemble, []string{"flaky"})
			So(res.Unavailable, ShouldHaveLength, 3)
			So(res.Unavailable[0].Output, ShouldEqual, results.OutputSuggestions)
			So(res.Unavailable[1].Output, ShouldEqual, results.OutputStatistic)
			So(res.Unavailable[2].Output, ShouldEqual, results.OutputTab)
			So(res.Unavailable[0].Reason, ShouldContainSubstring, "corrupt state")
		})

		Convey("Then built-in tabs follow module tabs", func() {
			So(res.Tabs, ShouldHaveLength, 3)
			So(res.Tabs[0].URL, ShouldEqual, "hits")
			So(res.Tabs[1].URL, ShouldEqual, "suggestions")
			So(res.Tabs[2].URL, ShouldEqual, "talents")
			So(res.Tabs[2].Content.(results.TalentsContent).Talents, ShouldResemble, []int{3, 1})
		})

		Convey("Then sorted statistics follow their positions", func() {
			sorted := res.SortedStatistics()
			So(sorted[0].Source, ShouldEqual, "beta")
			So(sorted[1].Source, ShouldEqual, "alpha")
			So(res.Statistics[0].Source, ShouldEqual, "alpha")
		})

		Convey("Then sealing again fails", func() {
			_, err := agg.Seal(context.Background())
			So(errors.Is(err, results.ErrResultAlreadySealed), ShouldBeTrue)
		})
	})

	Convey("Given a producer that panics", t, func() {
		res, _ := run(graph.Registry{statEntry("boom", true)})

		Convey("Then it is degraded like a failing handler", func() {
			So(res.Statistics, ShouldBeEmpty)
			So(res.Degraded, ShouldResemble, []string{"boom"})
			So(res.Unavailable, ShouldHaveLength, 1)
			So(res.Unavailable[0].Reason, ShouldContainSubstring, "division by zero")
		})
	})

	Convey("Given custom tab sources", t, func() {
		res, _ := run(graph.Registry{statEntry("beta", false)}, results.WithTabSources())
		So(res.Tabs, ShouldBeEmpty)
	})

	Convey("Given the same input through fresh graphs", t, func() {
		reg := func() graph.Registry {
			n := 0
			return graph.Registry{
				counterEntry("alpha", analyzer.Core(3), true, 0, &n),
				counterEntry("flaky", analyzer.Core(2), true, 1, &n),
				statEntry("beta", false),
			}
		}
		first, _ := run(reg())
		second, _ := run(reg())
		a, err := json.Marshal(first)
		So(err, ShouldBeNil)
		b, err := json.Marshal(second)
		So(err, ShouldBeNil)

		Convey("Then the serialized results are byte-identical", func() {
			So(string(a), ShouldEqual, string(b))
		})
	})
}
