// Package period canonicalizes metric cadences into period-start boundaries
// and renders them for display and storage keys.
package period

import (
	"fmt"
	"time"
)

// Cadence is the granularity at which a metric is measured.
type Cadence string

const (
	CadenceWeekly    Cadence = "weekly"
	CadenceMonthly   Cadence = "monthly"
	CadenceQuarterly Cadence = "quarterly"
)

// DefaultWindow is how many recent periods make up a scorecard's x-axis.
const DefaultWindow = 8

// Valid reports whether c is a known cadence.
func (c Cadence) Valid() bool {
	switch c {
	case CadenceWeekly, CadenceMonthly, CadenceQuarterly:
		return true
	}
	return false
}

// Start returns the canonical period-start boundary containing now:
// weekly is the most recent Monday at midnight, monthly the first of the
// month, quarterly the first day of the current Jan/Apr/Jul/Oct block.
// Unknown cadences fall back to the start of now's day.
func Start(c Cadence, now time.Time) time.Time {
	switch c {
	case CadenceWeekly:
		daysSinceMonday := (int(now.Weekday()) + 6) % 7
		monday := now.AddDate(0, 0, -daysSinceMonday)
		return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, now.Location())
	case CadenceMonthly:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	case CadenceQuarterly:
		quarterStart := time.Month((int(now.Month())-1)/3*3 + 1)
		return time.Date(now.Year(), quarterStart, 1, 0, 0, 0, 0, now.Location())
	}
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// Recent returns the n most recent period-start boundaries in descending
// order, walking backward from the current boundary in fixed steps of
// 7 days, 1 month, or 3 months. It is the canonical x-axis for a time
// series regardless of which periods have entries.
func Recent(c Cadence, n int, now time.Time) []time.Time {
	if n <= 0 {
		return nil
	}

	starts := make([]time.Time, 0, n)
	cursor := Start(c, now)
	for i := 0; i < n; i++ {
		starts = append(starts, cursor)
		switch c {
		case CadenceWeekly:
			cursor = cursor.AddDate(0, 0, -7)
		case CadenceMonthly:
			cursor = cursor.AddDate(0, -1, 0)
		case CadenceQuarterly:
			cursor = cursor.AddDate(0, -3, 0)
		default:
			cursor = cursor.AddDate(0, 0, -1)
		}
	}
	return starts
}

// Key renders a period start as its storage key, e.g. "2025-01-06".
func Key(start time.Time) string {
	return start.Format("2006-01-02")
}

// Format renders a period start for display. Weekly periods render as a
// date range covering start plus six days, monthly as "January 2025",
// quarterly as "Q1 2025".
func Format(c Cadence, start time.Time) string {
	switch c {
	case CadenceWeekly:
		end := start.AddDate(0, 0, 6)
		return fmt.Sprintf("%s - %s", start.Format("Jan 2"), end.Format("Jan 2, 2006"))
	case CadenceMonthly:
		return start.Format("January 2006")
	case CadenceQuarterly:
		quarter := (int(start.Month())-1)/3 + 1
		return fmt.Sprintf("Q%d %d", quarter, start.Year())
	}
	return Key(start)
}
