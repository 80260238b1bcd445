package graph_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/okian/fightlog/internal/domain/analyzer"
	"github.com/okian/fightlog/internal/domain/encounter"
	"github.com/okian/fightlog/internal/domain/event"
	"github.com/okian/fightlog/internal/domain/graph"
	"github.com/okian/fightlog/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type stub struct {
	analyzer.Base
}

func newStub(built *[]string, active bool) graph.Constructor {
	return func(env analyzer.Env, deps graph.Deps) (analyzer.Module, error) {
		*built = append(*built, env.Key)
		s := &stub{}
		s.Init(env)
		s.SetActive(active)
		return s, nil
	}
}

func testEncounter() *encounter.Context {
	enc, err := encounter.New(encounter.Spec{
		Start: 0, End: 100, SelectedID: 1,
		Combatants: []encounter.CombatantSpec{{ID: 1, Race: encounter.RaceHuman}},
	})
	if err != nil {
		panic(err)
	}
	return enc
}

func quiet() graph.Option {
	return graph.WithLogger(logger.NewWithWriter(io.Discard))
}

func TestResolve(t *testing.T) {
	convey.Convey("Given a registry with shared dependencies", t, func() {
		var built []string
		reg := graph.Registry{
			{Key: "abc", New: newStub(&built, true), Dependencies: []string{"gcd", "channeling"}},
			{Key: "gcd", New: newStub(&built, true), Dependencies: []string{"channeling"}},
			{Key: "channeling", New: newStub(&built, true)},
			{Key: "damage", New: newStub(&built, true)},
		}

		convey.Convey("When resolving twice", func() {
			first, err := graph.Resolve(reg)
			convey.So(err, convey.ShouldBeNil)
			second, _ := graph.Resolve(reg)

			convey.Convey("Then the order is deterministic and topological", func() {
				convey.So(first, convey.ShouldResemble, []string{"channeling", "gcd", "abc", "damage"})
				convey.So(second, convey.ShouldResemble, first)

				pos := map[string]int{}
				for i, k := range first {
					pos[k] = i
				}
				for _, e := range reg {
					for _, d := range e.Dependencies {
						convey.So(pos[d], convey.ShouldBeLessThan, pos[e.Key])
					}
				}
			})
		})

		convey.Convey("When a key is registered twice", func() {
			reg = append(reg, graph.Entry{Key: "gcd", New: newStub(&built, true)})
			_, err := graph.Resolve(reg)
			convey.So(errors.Is(err, graph.ErrDuplicateModule), convey.ShouldBeTrue)
		})

		convey.Convey("When With replaces an entry", func() {
			replaced := reg.With(graph.Entry{Key: "damage", New: newStub(&built, true), Config: true})
			convey.So(replaced.Keys(), convey.ShouldResemble, reg.Keys())
			convey.So(replaced[3].Config, convey.ShouldEqual, true)
			convey.So(reg[3].Config, convey.ShouldBeNil)
		})
	})

	convey.Convey("Given a cyclic registry", t, func() {
		var built []string
		reg := graph.Registry{
			{Key: "a", New: newStub(&built, true), Dependencies: []string{"b"}},
			{Key: "b", New: newStub(&built, true), Dependencies: []string{"c"}},
			{Key: "c", New: newStub(&built, true), Dependencies: []string{"a"}},
		}

		convey.Convey("Then building fails before any constructor runs", func() {
			_, err := graph.Build(context.Background(), reg, testEncounter(), quiet())
			var cyc *graph.CyclicDependencyError
			convey.So(errors.As(err, &cyc), convey.ShouldBeTrue)
			convey.So(cyc.Path, convey.ShouldResemble, []string{"a", "b", "c", "a"})
			convey.So(errors.Is(err, graph.ErrCyclicDependency), convey.ShouldBeTrue)
			convey.So(built, convey.ShouldBeEmpty)
		})
	})

	convey.Convey("Given a registry with a missing dependency", t, func() {
		var built []string
		reg := graph.Registry{
			{Key: "channeling", New: newStub(&built, true)},
			{Key: "abc", New: newStub(&built, true), Dependencies: []string{"channeling", "haste"}},
		}

		convey.Convey("Then the error names the key and nothing is constructed", func() {
			_, err := graph.Build(context.Background(), reg, testEncounter(), quiet())
			var unresolved *graph.UnresolvedDependencyError
			convey.So(errors.As(err, &unresolved), convey.ShouldBeTrue)
			convey.So(unresolved.Module, convey.ShouldEqual, "abc")
			convey.So(unresolved.Dependency, convey.ShouldEqual, "haste")
			convey.So(built, convey.ShouldBeEmpty)
		})
	})
}

func TestBuild(t *testing.T) {
	convey.Convey("Given a registry with an inactive module", t, func() {
		var built []string
		reg := graph.Registry{
			{Key: "stoneform", New: newStub(&built, false)},
			{Key: "reader", Dependencies: []string{"stoneform"}, New: func(env analyzer.Env, deps graph.Deps) (analyzer.Module, error) {
				dep, err := graph.Dep[*stub](deps, "stoneform")
				if err != nil {
					return nil, err
				}
				s := &stub{}
				s.Init(env)
				s.SetActive(!dep.Active())
				return s, nil
			}},
		}

		convey.Convey("When building the graph", func() {
			g, err := graph.Build(context.Background(), reg, testEncounter(), quiet())
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then inactive modules still occupy a node", func() {
				n, ok := g.Node("stoneform")
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(n.State(), convey.ShouldEqual, graph.StateInactive)
				convey.So(n.Degrade(errors.New("boom")), convey.ShouldBeFalse)
			})

			convey.Convey("Then dependents can inspect them", func() {
				n, _ := g.Node("reader")
				convey.So(n.State(), convey.ShouldEqual, graph.StateActive)
				convey.So(g.Counts()[graph.StateInactive], convey.ShouldEqual, 1)
			})

			convey.Convey("Then degrading keeps the first failure", func() {
				n, _ := g.Node("reader")
				first := errors.New("first")
				convey.So(n.Degrade(first), convey.ShouldBeTrue)
				convey.So(n.Degrade(errors.New("second")), convey.ShouldBeFalse)
				convey.So(n.Err(), convey.ShouldEqual, first)
				convey.So(n.State(), convey.ShouldEqual, graph.StateDegraded)
			})

			convey.Convey("Then emitting before a sink is bound fails", func() {
				n, _ := g.Node("reader")
				err := n.Module.(*stub).Emit(event.Event{Kind: event.KindGlobalCooldown})
				convey.So(errors.Is(err, graph.ErrUnbound), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given a constructor that fails", t, func() {
		reg := graph.Registry{
			{Key: "broken", New: func(analyzer.Env, graph.Deps) (analyzer.Module, error) {
				return nil, errors.New("bad config")
			}},
		}
		_, err := graph.Build(context.Background(), reg, testEncounter(), quiet())
		convey.So(errors.Is(err, graph.ErrConstruct), convey.ShouldBeTrue)
		convey.So(err.Error(), convey.ShouldContainSubstring, "broken")
	})

	convey.Convey("Given a constructor asking for an undeclared dependency", t, func() {
		var built []string
		reg := graph.Registry{
			{Key: "a", New: newStub(&built, true)},
			{Key: "b", New: func(env analyzer.Env, deps graph.Deps) (analyzer.Module, error) {
				_, err := graph.Dep[*stub](deps, "a")
				return nil, err
			}},
		}
		_, err := graph.Build(context.Background(), reg, testEncounter(), quiet())
		convey.So(errors.Is(err, graph.ErrUnknownDependency), convey.ShouldBeTrue)
	})
}
