package results

import (
	"slices"

	"github.com/okian/fightlog/internal/domain/analyzer"
	"github.com/okian/fightlog/internal/domain/graph"
)

// SuggestionsTab lists every suggestion, most important first.
type SuggestionsTab struct{}

func (SuggestionsTab) Tab(r *Result, _ *graph.Graph) (analyzer.Tab, bool) {
	issues := slices.Clone(r.Suggestions)
	slices.SortStableFunc(issues, func(a, b analyzer.Suggestion) int {
		return a.Importance.Rank() - b.Importance.Rank()
	})
	return analyzer.Tab{Title: "Suggestions", URL: "suggestions", Content: issues}, true
}

// TalentsContent is the payload of the talents tab.
type TalentsContent struct {
	Combatant string `json:"combatant"`
	Class     string `json:"class,omitempty"`
	Spec      string `json:"spec,omitempty"`
	Talents   []int  `json:"talents"`
}

// TalentsTab shows the talents of the selected combatant.
type TalentsTab struct{}

func (TalentsTab) Tab(_ *Result, g *graph.Graph) (analyzer.Tab, bool) {
	enc := g.Encounter()
	if enc == nil {
		return analyzer.Tab{}, false
	}
	sel := enc.Selected()
	talents := sel.Talents()
	if talents == nil {
		talents = []int{}
	}
	return analyzer.Tab{
		Title: "Talents",
		URL:   "talents",
		Content: TalentsContent{
			Combatant: sel.Name(),
			Class:     sel.Class(),
			Spec:      sel.Spec(),
			Talents:   talents,
		},
	}, true
}
