// Package report formats analytics snapshots as plain text for chat and
// terminal output.
package report

import (
	"fmt"
	"strings"

	"github.com/user/theo/internal/analytics"
)

// barScale converts a display height (10..120) into a run of block characters.
const barScale = 10.0

// Digest renders the total, the theme ranking and the weekly bars.
func Digest(snap analytics.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Messages logged: %d\n", snap.Total)

	b.WriteString("\nThemes\n")
	b.WriteString(Themes(snap.Themes))

	b.WriteString("\nWeekly\n")
	b.WriteString(Weekly(snap.Weekly))
	return b.String()
}

// Themes renders one "name: count" line per theme.
func Themes(themes []analytics.ThemeCount) string {
	if len(themes) == 0 {
		return "No theme data yet\n"
	}
	var b strings.Builder
	for _, t := range themes {
		fmt.Fprintf(&b, "%s: %d\n", t.Name, t.Count)
	}
	return b.String()
}

// Weekly renders one horizontal bar per day.
func Weekly(bars []analytics.Bar) string {
	var b strings.Builder
	for _, bar := range bars {
		width := int(bar.Height / barScale)
		fmt.Fprintf(&b, "%s %s %d\n", bar.Label, strings.Repeat("█", width), bar.Count)
	}
	return b.String()
}
