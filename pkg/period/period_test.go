package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestStartWeekly(t *testing.T) {
	// 2025-01-08 is a Wednesday; the containing week starts Monday the 6th.
	wednesday := time.Date(2025, time.January, 8, 14, 30, 0, 0, time.UTC)
	assert.Equal(t, date(2025, time.January, 6), Start(CadenceWeekly, wednesday))

	// A Monday canonicalizes to itself at midnight.
	monday := time.Date(2025, time.January, 6, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, date(2025, time.January, 6), Start(CadenceWeekly, monday))

	// Sunday belongs to the week that started six days earlier.
	sunday := time.Date(2025, time.January, 12, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, date(2025, time.January, 6), Start(CadenceWeekly, sunday))
}

func TestStartMonthly(t *testing.T) {
	now := time.Date(2025, time.February, 15, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, date(2025, time.February, 1), Start(CadenceMonthly, now))
}

func TestStartQuarterly(t *testing.T) {
	tests := []struct {
		now  time.Time
		want time.Time
	}{
		{date(2025, time.February, 15), date(2025, time.January, 1)},
		{date(2025, time.April, 1), date(2025, time.April, 1)},
		{date(2025, time.September, 30), date(2025, time.July, 1)},
		{date(2025, time.December, 31), date(2025, time.October, 1)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Start(CadenceQuarterly, tt.now))
	}
}

func TestRecentWalksBackwardDescending(t *testing.T) {
	now := date(2025, time.January, 8)

	weeks := Recent(CadenceWeekly, DefaultWindow, now)
	require.Len(t, weeks, 8)
	assert.Equal(t, date(2025, time.January, 6), weeks[0])
	for i := 1; i < len(weeks); i++ {
		assert.Equal(t, weeks[i-1].AddDate(0, 0, -7), weeks[i])
	}

	months := Recent(CadenceMonthly, 3, now)
	require.Len(t, months, 3)
	assert.Equal(t, date(2025, time.January, 1), months[0])
	assert.Equal(t, date(2024, time.December, 1), months[1])
	assert.Equal(t, date(2024, time.November, 1), months[2])

	quarters := Recent(CadenceQuarterly, 3, now)
	require.Len(t, quarters, 3)
	assert.Equal(t, date(2025, time.January, 1), quarters[0])
	assert.Equal(t, date(2024, time.October, 1), quarters[1])
	assert.Equal(t, date(2024, time.July, 1), quarters[2])
}

func TestRecentZero(t *testing.T) {
	assert.Nil(t, Recent(CadenceWeekly, 0, time.Now()))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "Jan 6 - Jan 12, 2025", Format(CadenceWeekly, date(2025, time.January, 6)))
	assert.Equal(t, "January 2025", Format(CadenceMonthly, date(2025, time.January, 1)))
	assert.Equal(t, "Q1 2025", Format(CadenceQuarterly, date(2025, time.January, 1)))
	assert.Equal(t, "Q4 2024", Format(CadenceQuarterly, date(2024, time.October, 1)))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "2025-01-06", Key(date(2025, time.January, 6)))
}
