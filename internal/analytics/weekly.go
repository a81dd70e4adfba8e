package analytics

import (
	"time"

	"github.com/user/theo/internal/types"
)

// Display scaling for the weekly bars.
const (
	MinBarHeight = 10.0
	MaxBarHeight = 120.0
)

// DayLabels are the bucket labels; the week starts on Monday.
var DayLabels = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// DayCount is one bucket of the weekly histogram.
type DayCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Bar is a bucket with its display height.
type Bar struct {
	Label  string  `json:"label"`
	Count  int     `json:"count"`
	Height float64 `json:"height"`
}

// dayIndex maps time.Weekday (Sunday == 0) onto Monday-first buckets.
func dayIndex(d time.Weekday) int {
	if d == time.Sunday {
		return 6
	}
	return int(d) - 1
}

// WeeklySeries buckets messages by the weekday of CreatedAt, evaluated in loc.
// A nil loc means UTC. Messages without a timestamp are left out.
func WeeklySeries(messages []types.Message, loc *time.Location) []DayCount {
	if loc == nil {
		loc = time.UTC
	}
	var counts [7]int
	for _, msg := range messages {
		if msg.CreatedAt.IsZero() {
			continue
		}
		counts[dayIndex(msg.CreatedAt.In(loc).Weekday())]++
	}

	series := make([]DayCount, len(DayLabels))
	for i, label := range DayLabels {
		series[i] = DayCount{Label: label, Count: counts[i]}
	}
	return series
}

// Normalize scales counts against the busiest day: height = count/peak*120,
// floored at 10. Peak is at least 1, so an empty week renders all floors.
func Normalize(series []DayCount) []Bar {
	peak := 1
	for _, d := range series {
		if d.Count > peak {
			peak = d.Count
		}
	}

	bars := make([]Bar, len(series))
	for i, d := range series {
		bars[i] = Bar{
			Label:  d.Label,
			Count:  d.Count,
			Height: max(MinBarHeight, float64(d.Count)/float64(peak)*MaxBarHeight),
		}
	}
	return bars
}
