// Package analytics derives theme counts and a weekly histogram from the
// message collection. Everything is recomputed on each call.
package analytics

import (
	"strings"

	"github.com/user/theo/internal/types"
)

// Rule assigns Name to any message whose lower-cased text contains one of
// Keywords. Keywords are expected in lower case.
type Rule struct {
	Name     string
	Keywords []string
}

// DefaultRules returns the promo theme rules in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "Free Cover", Keywords: []string{"free", "cover"}},
		{Name: "VIP Tables", Keywords: []string{"vip", "table", "bottle"}},
		{Name: "Event Promo", Keywords: []string{"friday", "saturday", "tonight", "party", "dj"}},
		{Name: "Student Offer", Keywords: []string{"student", "college", "campus"}},
		{Name: "Birthday Offer", Keywords: []string{"birthday", "celebrate"}},
	}
}

func (r Rule) matches(lower string) bool {
	for _, kw := range r.Keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ThemeCount pairs a theme with the number of messages that matched it.
type ThemeCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ThemeCounts is a theme->count mapping that remembers the order in which
// themes were first counted.
type ThemeCounts struct {
	order  []string
	counts map[string]int
}

func newThemeCounts() *ThemeCounts {
	return &ThemeCounts{counts: make(map[string]int)}
}

func (tc *ThemeCounts) inc(name string) {
	if _, ok := tc.counts[name]; !ok {
		tc.order = append(tc.order, name)
	}
	tc.counts[name]++
}

// Get returns the count for name; zero when the theme never matched.
func (tc *ThemeCounts) Get(name string) int {
	return tc.counts[name]
}

// Len returns the number of themes with a count of at least one.
func (tc *ThemeCounts) Len() int {
	return len(tc.order)
}

// Entries returns the counts in first-insertion order.
func (tc *ThemeCounts) Entries() []ThemeCount {
	out := make([]ThemeCount, 0, len(tc.order))
	for _, name := range tc.order {
		out = append(out, ThemeCount{Name: name, Count: tc.counts[name]})
	}
	return out
}

// Map returns a plain copy of the counts.
func (tc *ThemeCounts) Map() map[string]int {
	out := make(map[string]int, len(tc.counts))
	for k, v := range tc.counts {
		out[k] = v
	}
	return out
}

// Classify counts, per rule, the messages whose text matches any of the
// rule's keywords. Rules are independent: one message can count toward
// several themes. Themes without matches are absent from the result.
func Classify(messages []types.Message, rules []Rule) *ThemeCounts {
	counts := newThemeCounts()
	for _, msg := range messages {
		lower := strings.ToLower(msg.Text)
		for _, rule := range rules {
			if rule.matches(lower) {
				counts.inc(rule.Name)
			}
		}
	}
	return counts
}

// Themes returns the names of the rules matching a single text.
func Themes(text string, rules []Rule) []string {
	lower := strings.ToLower(text)
	var names []string
	for _, rule := range rules {
		if rule.matches(lower) {
			names = append(names, rule.Name)
		}
	}
	return names
}
