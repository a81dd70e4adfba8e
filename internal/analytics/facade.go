package analytics

import (
	"sort"
	"time"

	"github.com/user/theo/internal/types"
)

// Analytics turns the current message collection into the theme and weekly
// views. Nothing is cached: call again after the collection changes.
type Analytics struct {
	source types.MessageSource
	rules  []Rule
	loc    *time.Location
}

// Option configures Analytics.
type Option func(*Analytics)

// WithRules replaces DefaultRules.
func WithRules(rules []Rule) Option {
	return func(a *Analytics) { a.rules = rules }
}

// WithLocation sets the timezone used for weekday bucketing.
func WithLocation(loc *time.Location) Option {
	return func(a *Analytics) {
		if loc != nil {
			a.loc = loc
		}
	}
}

// New creates an Analytics view over source.
func New(source types.MessageSource, opts ...Option) *Analytics {
	a := &Analytics{
		source: source,
		rules:  DefaultRules(),
		loc:    time.UTC,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Rules returns the configured theme rules.
func (a *Analytics) Rules() []Rule {
	return a.rules
}

// ThemeView returns matched themes by descending count. Ties keep the order
// in which the themes were first counted.
func (a *Analytics) ThemeView() []ThemeCount {
	return SortThemes(Classify(a.source.List(), a.rules).Entries())
}

// SortThemes stably sorts entries by descending count.
func SortThemes(entries []ThemeCount) []ThemeCount {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})
	return entries
}

// WeeklySeries returns the raw Mon..Sun counts.
func (a *Analytics) WeeklySeries() []DayCount {
	return WeeklySeries(a.source.List(), a.loc)
}

// WeeklyView returns the Mon..Sun series with display heights.
func (a *Analytics) WeeklyView() []Bar {
	return Normalize(a.WeeklySeries())
}

// Total returns the number of logged messages.
func (a *Analytics) Total() int {
	return len(a.source.List())
}

// Snapshot bundles both views computed from one read of the collection.
type Snapshot struct {
	Total  int          `json:"total"`
	Themes []ThemeCount `json:"themes"`
	Weekly []Bar        `json:"weekly"`
}

// Snapshot computes every view from a single listing of the messages.
func (a *Analytics) Snapshot() Snapshot {
	messages := a.source.List()
	return Snapshot{
		Total:  len(messages),
		Themes: SortThemes(Classify(messages, a.rules).Entries()),
		Weekly: Normalize(WeeklySeries(messages, a.loc)),
	}
}
