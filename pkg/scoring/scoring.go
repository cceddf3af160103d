// Package scoring converts raw metric values into achievement percentages,
// tri-state statuses, and trend signals against configurable targets.
//
// Nothing in this package returns an error: missing targets, zero divisors,
// and short histories all degrade to documented defaults (0, flat, or an
// explicit absent marker) so that a half-configured metric still renders.
package scoring

// Mode is the rule family used to score a raw value against its target.
type Mode string

const (
	ModeAtLeast Mode = "at_least"
	ModeAtMost  Mode = "at_most"
	ModeBetween Mode = "between"
	ModeYesNo   Mode = "yes_no"
)

// Valid reports whether m is a known scoring mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeAtLeast, ModeAtMost, ModeBetween, ModeYesNo:
		return true
	}
	return false
}

// Status is the tri-state signal derived from a score.
type Status string

const (
	StatusOnTarget    Status = "on-target"
	StatusNearTarget  Status = "near-target"
	StatusBelowTarget Status = "below-target"
)

// Trend is the direction signal derived from a value history.
type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
	TrendFlat Trend = "flat"
)

// Target is a metric's scoring configuration. Only the fields required by
// Mode are consulted: Value for at_least/at_most, Min and Max for between,
// Boolean for yes_no. A nil required field scores 0.
type Target struct {
	Mode    Mode
	Value   *float64
	Min     *float64
	Max     *float64
	Boolean *bool
}

// Status thresholds. A score at or above OnTargetThreshold is on-target,
// at or above NearTargetThreshold is near-target, anything lower is
// below-target. These are fixed, not configurable.
const (
	OnTargetThreshold   = 100.0
	NearTargetThreshold = 75.0
)

// trendBand is the noise threshold around the previous average: recent
// movement within +/-5% reads as flat.
const trendBand = 0.05

// trendWindow is how many trailing values form the recent and previous
// averaging windows.
const trendWindow = 3

// Score converts a raw value into an achievement percentage. The result is
// unbounded above for at_least; the other modes cap at 100.
func Score(value float64, t Target) float64 {
	switch t.Mode {
	case ModeAtLeast:
		if t.Value == nil || *t.Value == 0 {
			return 0
		}
		return value / *t.Value * 100

	case ModeAtMost:
		if t.Value == nil {
			return 0
		}
		if value <= *t.Value {
			return 100
		}
		// value > target > 0 here unless target <= 0; guard the divisor.
		if value == 0 {
			return 0
		}
		return *t.Value / value * 100

	case ModeBetween:
		if t.Min == nil || t.Max == nil {
			return 0
		}
		if value >= *t.Min && value <= *t.Max {
			return 100
		}
		if value < *t.Min {
			if *t.Min == 0 {
				return 0
			}
			return value / *t.Min * 100
		}
		if value == 0 {
			return 0
		}
		return *t.Max / value * 100

	case ModeYesNo:
		if t.Boolean == nil {
			return 0
		}
		if (value == 1) == *t.Boolean {
			return 100
		}
		return 0
	}
	return 0
}

// StatusFor maps a score onto the fixed on/near/below thresholds.
func StatusFor(score float64) Status {
	switch {
	case score >= OnTargetThreshold:
		return StatusOnTarget
	case score >= NearTargetThreshold:
		return StatusNearTarget
	}
	return StatusBelowTarget
}

// VsGoal returns the signed percentage deviation from the goal. It is 0
// whenever the value already satisfies the goal, including anywhere inside
// a between range. For yes_no it is 0 on a match and -100 on a mismatch.
func VsGoal(value float64, t Target) float64 {
	switch t.Mode {
	case ModeAtLeast:
		if t.Value == nil || *t.Value == 0 {
			return 0
		}
		if value >= *t.Value {
			return 0
		}
		return (value - *t.Value) / *t.Value * 100

	case ModeAtMost:
		if t.Value == nil {
			return 0
		}
		if value <= *t.Value {
			return 0
		}
		if *t.Value == 0 {
			return 0
		}
		return (*t.Value - value) / *t.Value * 100

	case ModeBetween:
		if t.Min == nil || t.Max == nil {
			return 0
		}
		if value >= *t.Min && value <= *t.Max {
			return 0
		}
		if value < *t.Min {
			if *t.Min == 0 {
				return 0
			}
			return (value - *t.Min) / *t.Min * 100
		}
		if *t.Max == 0 {
			return 0
		}
		return (*t.Max - value) / *t.Max * 100

	case ModeYesNo:
		if t.Boolean == nil {
			return 0
		}
		if (value == 1) == *t.Boolean {
			return 0
		}
		return -100
	}
	return 0
}

// TrendOf derives a direction signal from an ordered (oldest to newest)
// value sequence. The last trendWindow values are "recent" and the
// trendWindow before those are "previous"; fewer than 2 values, or no
// previous window at all, reads as flat.
func TrendOf(values []float64) Trend {
	if len(values) < 2 {
		return TrendFlat
	}

	recentStart := len(values) - trendWindow
	if recentStart < 0 {
		recentStart = 0
	}
	recent := values[recentStart:]
	previous := values[:recentStart]
	if len(previous) > trendWindow {
		previous = previous[len(previous)-trendWindow:]
	}
	if len(previous) == 0 {
		return TrendFlat
	}

	recentAvg := mean(recent)
	previousAvg := mean(previous)

	switch {
	case recentAvg > previousAvg*(1+trendBand):
		return TrendUp
	case recentAvg < previousAvg*(1-trendBand):
		return TrendDown
	}
	return TrendFlat
}

// WeekOverWeek returns the percentage change from previous to current.
// The second return is false when there is no previous value or the
// previous value is zero, in which case the change is undefined.
func WeekOverWeek(current, previous float64, hasPrevious bool) (float64, bool) {
	if !hasPrevious || previous == 0 {
		return 0, false
	}
	return (current - previous) / previous * 100, true
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
