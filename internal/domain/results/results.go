// Package results collects module outputs into one sealed report once the
// event stream has been exhausted.
package results

import (
	"context"
	"fmt"
	"slices"

	"github.com/okian/fightlog/internal/domain/analyzer"
	"github.com/okian/fightlog/internal/domain/graph"
	"github.com/okian/fightlog/pkg/logger"
)

// Output names a producer kind in unavailable markers.
type Output string

const (
	OutputSuggestions Output = "suggestions"
	OutputStatistic   Output = "statistic"
	OutputTab         Output = "tab"
)

// Unavailable marks an output a degraded module could not deliver.
type Unavailable struct {
	Module string `json:"module"`
	Output Output `json:"output"`
	Reason string `json:"reason"`
}

// Result is the sealed report of one run.
type Result struct {
	Suggestions []analyzer.Suggestion `json:"suggestions"`
	Statistics  []analyzer.Statistic  `json:"statistics"`
	Tabs        []analyzer.Tab        `json:"tabs"`
	Unavailable []Unavailable         `json:"unavailable,omitempty"`
	Degraded    []string              `json:"degraded,omitempty"`
}

// SortedStatistics returns the statistics stably sorted by position.
func (r *Result) SortedStatistics() []analyzer.Statistic {
	out := slices.Clone(r.Statistics)
	slices.SortStableFunc(out, func(a, b analyzer.Statistic) int {
		switch {
		case a.Position.Less(b.Position):
			return -1
		case b.Position.Less(a.Position):
			return 1
		default:
			return 0
		}
	})
	return out
}

// TabSource contributes a built-in tab computed from the module outputs.
type TabSource interface {
	Tab(r *Result, g *graph.Graph) (analyzer.Tab, bool)
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithTabSources replaces the built-in tab sources.
func WithTabSources(sources ...TabSource) Option {
	return func(a *Aggregator) { a.sources = sources }
}

// WithLogger sets the aggregator logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.log = l
		}
	}
}

// Aggregator queries every active module of a graph exactly once.
type Aggregator struct {
	g       *graph.Graph
	sources []TabSource
	log     logger.Logger
	sealed  bool
}

// NewAggregator creates an aggregator for g with the Suggestions and
// Talents tabs as built-ins.
func NewAggregator(g *graph.Graph, opts ...Option) *Aggregator {
	a := &Aggregator{
		g:       g,
		sources: []TabSource{SuggestionsTab{}, TalentsTab{}},
		log:     g.Logger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type outputs struct {
	suggestions []analyzer.Suggestion
	statistic   *analyzer.Statistic
	tab         *analyzer.Tab
}

// Seal builds the result. It may be called once.
func (a *Aggregator) Seal(ctx context.Context) (*Result, error) {
	if a.sealed {
		return nil, ErrResultAlreadySealed
	}
	a.sealed = true

	res := &Result{
		Suggestions: []analyzer.Suggestion{},
		Statistics:  []analyzer.Statistic{},
		Tabs:        []analyzer.Tab{},
	}
	for _, n := range a.g.Nodes() {
		switch n.State() {
		case graph.StateInactive:
			continue
		case graph.StateActive:
			out, err := collect(n)
			if err == nil {
				res.Suggestions = append(res.Suggestions, out.suggestions...)
				if out.statistic != nil {
					res.Statistics = append(res.Statistics, *out.statistic)
				}
				if out.tab != nil {
					res.Tabs = append(res.Tabs, *out.tab)
				}
				continue
			}
			n.Degrade(err)
			a.log.Warn(ctx, "module output failed", logger.String("module", n.Key), logger.Error(err))
		}
		res.Degraded = append(res.Degraded, n.Key)
		res.Unavailable = append(res.Unavailable, unavailable(n)...)
	}

	for _, src := range a.sources {
		if tab, ok := src.Tab(res, a.g); ok {
			res.Tabs = append(res.Tabs, tab)
		}
	}

	a.log.Debug(ctx, "result sealed",
		logger.Int("suggestions", len(res.Suggestions)),
		logger.Int("statistics", len(res.Statistics)),
		logger.Int("tabs", len(res.Tabs)),
		logger.Int("degraded", len(res.Degraded)))
	return res, nil
}

func collect(n *graph.Node) (out outputs, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = outputs{}, fmt.Errorf("%w: %v", ErrProducerPanic, r)
		}
	}()
	if p, ok := n.Module.(analyzer.SuggestionProducer); ok {
		for _, s := range p.Suggestions() {
			s.Source = n.Key
			out.suggestions = append(out.suggestions, s)
		}
	}
	if p, ok := n.Module.(analyzer.StatisticProducer); ok {
		if s, ok := p.Statistic(); ok {
			s.Source = n.Key
			out.statistic = &s
		}
	}
	if p, ok := n.Module.(analyzer.TabProducer); ok {
		if t, ok := p.Tab(); ok {
			t.Source = n.Key
			out.tab = &t
		}
	}
	return out, nil
}

func unavailable(n *graph.Node) []Unavailable {
	reason := "degraded"
	if err := n.Err(); err != nil {
		reason = err.Error()
	}
	var out []Unavailable
	if _, ok := n.Module.(analyzer.SuggestionProducer); ok {
		out = append(out, Unavailable{Module: n.Key, Output: OutputSuggestions, Reason: reason})
	}
	if _, ok := n.Module.(analyzer.StatisticProducer); ok {
		out = append(out, Unavailable{Module: n.Key, Output: OutputStatistic, Reason: reason})
	}
	if _, ok := n.Module.(analyzer.TabProducer); ok {
		out = append(out, Unavailable{Module: n.Key, Output: OutputTab, Reason: reason})
	}
	return out
}
