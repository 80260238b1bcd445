package analyzer

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Importance ranks a suggestion.
type Importance string

// Suggestion importances, most severe first.
const (
	ImportanceMajor   Importance = "major"
	ImportanceAverage Importance = "average"
	ImportanceMinor   Importance = "minor"
)

// Rank orders importances, major first.
func (i Importance) Rank() int {
	switch i {
	case ImportanceMajor:
		return 0
	case ImportanceAverage:
		return 1
	default:
		return 2
	}
}

// Suggestion is one actionable piece of advice.
type Suggestion struct {
	Source      string     `json:"source"`
	Text        string     `json:"text"`
	Icon        string     `json:"icon,omitempty"`
	Actual      string     `json:"actual,omitempty"`
	Recommended string     `json:"recommended,omitempty"`
	Importance  Importance `json:"importance"`
}

// Category groups statistics for rendering.
type Category string

// Statistic categories in display order.
const (
	CategoryCore        Category = "core"
	CategoryItems       Category = "items"
	CategoryGeneral     Category = "general"
	CategoryOptional    Category = "optional"
	CategoryUnimportant Category = "unimportant"
)

var categoryRank = map[Category]int{
	CategoryCore:        0,
	CategoryItems:       1,
	CategoryGeneral:     2,
	CategoryOptional:    3,
	CategoryUnimportant: 4,
}

// Position is the stable ordering key of a statistic.
type Position struct {
	Category Category `json:"category"`
	Order    int      `json:"order"`
}

// Position constructors per category.
func Core(order int) Position        { return Position{Category: CategoryCore, Order: order} }
func Items(order int) Position       { return Position{Category: CategoryItems, Order: order} }
func General(order int) Position     { return Position{Category: CategoryGeneral, Order: order} }
func Optional(order int) Position    { return Position{Category: CategoryOptional, Order: order} }
func Unimportant(order int) Position { return Position{Category: CategoryUnimportant, Order: order} }

// Less orders positions by category, then order.
func (p Position) Less(o Position) bool {
	ra, rb := p.rank(), o.rank()
	if ra != rb {
		return ra < rb
	}
	return p.Order < o.Order
}

func (p Position) rank() int {
	if r, ok := categoryRank[p.Category]; ok {
		return r
	}
	return len(categoryRank)
}

// StatisticItem is one row of a grouped statistic.
type StatisticItem struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Statistic is a plain data record; rendering is up to the consumer.
type Statistic struct {
	Source   string          `json:"source"`
	Position Position        `json:"position"`
	Label    string          `json:"label"`
	Value    string          `json:"value"`
	Tooltip  string          `json:"tooltip,omitempty"`
	Icon     string          `json:"icon,omitempty"`
	Items    []StatisticItem `json:"items,omitempty"`
}

// Tab is an auxiliary panel. Content must marshal deterministically.
type Tab struct {
	Source  string `json:"source,omitempty"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content any    `json:"content,omitempty"`
}

// Comparison selects the direction of a threshold.
type Comparison uint8

const (
	GreaterThan Comparison = iota
	LessThan
)

// Style selects how threshold values are formatted.
type Style uint8

const (
	StylePercentage Style = iota
	StyleNumber
	StyleThousands
	StyleSeconds
)

// Thresholds grades an actual value against minor/average/major limits.
type Thresholds struct {
	Actual  float64
	Minor   float64
	Average float64
	Major   float64
	Compare Comparison
	Style   Style
}

// Importance grades the actual value. ok is false when the minor limit is
// not crossed.
func (t Thresholds) Importance() (Importance, bool) {
	beyond := func(limit float64) bool {
		if t.Compare == LessThan {
			return t.Actual < limit
		}
		return t.Actual > limit
	}
	switch {
	case beyond(t.Major):
		return ImportanceMajor, true
	case beyond(t.Average):
		return ImportanceAverage, true
	case beyond(t.Minor):
		return ImportanceMinor, true
	default:
		return "", false
	}
}

// Format renders v in the threshold style.
func (t Thresholds) Format(v float64) string {
	switch t.Style {
	case StylePercentage:
		return FormatPercentage(v) + "%"
	case StyleThousands:
		return FormatThousands(v)
	case StyleSeconds:
		return strconv.FormatFloat(v/1000, 'f', 1, 64) + "s"
	default:
		return strconv.FormatFloat(v, 'f', 2, 64)
	}
}

// SuggestOption customizes a suggestion built by Suggest.
type SuggestOption func(*Suggestion, Thresholds)

// WithIcon sets the suggestion icon.
func WithIcon(icon string) SuggestOption {
	return func(s *Suggestion, _ Thresholds) { s.Icon = icon }
}

// WithActual labels the actual value, e.g. "downtime".
func WithActual(label string) SuggestOption {
	return func(s *Suggestion, t Thresholds) {
		s.Actual = strings.TrimSpace(t.Format(t.Actual) + " " + label)
	}
}

// Suggest builds a suggestion when the thresholds are crossed. The
// recommended text is derived from the minor limit.
func Suggest(t Thresholds, text string, opts ...SuggestOption) (Suggestion, bool) {
	imp, ok := t.Importance()
	if !ok {
		return Suggestion{}, false
	}
	cmp := "<"
	if t.Compare == LessThan {
		cmp = ">"
	}
	s := Suggestion{
		Text:        text,
		Importance:  imp,
		Actual:      t.Format(t.Actual),
		Recommended: fmt.Sprintf("%s%s is recommended", cmp, t.Format(t.Minor)),
	}
	for _, opt := range opts {
		opt(&s, t)
	}
	return s, true
}

// FormatPercentage renders a ratio as a percentage with two decimals.
func FormatPercentage(ratio float64) string {
	return strconv.FormatFloat(ratio*100, 'f', 2, 64)
}

// FormatThousands renders v rounded with comma grouping.
func FormatThousands(v float64) string {
	return humanize.Comma(int64(math.Round(v)))
}
