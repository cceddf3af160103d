package scorecard

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/orgpulse/scorecard/pkg/period"
	"github.com/orgpulse/scorecard/pkg/scoring"
)

// MetricInput is the loosely-typed form bag a metric create/update arrives
// as: string keys, string values, everything optional.
type MetricInput map[string]string

// ValidationErrors maps field names to human-readable problems.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s: %s", f, v[f])
	}
	return b.String()
}

// MetricConfig is a validated, mode-narrowed metric configuration. The
// scoring mode acts as the discriminant: Target carries exactly the fields
// that mode requires, so a config that parsed cannot be half-targeted.
type MetricConfig struct {
	Name        string
	Description string
	Cadence     period.Cadence
	Target      scoring.Target
	Unit        string
	OwnerUserID *string
}

// ParseMetricInput validates the form bag against the mode-specific
// required-field rules and produces a typed configuration. It returns nil
// and the full set of field errors when anything is invalid.
func ParseMetricInput(in MetricInput) (*MetricConfig, ValidationErrors) {
	errs := ValidationErrors{}

	name := strings.TrimSpace(in["name"])
	if name == "" {
		errs["name"] = "name is required"
	}

	cadence := period.Cadence(in["cadence"])
	if !cadence.Valid() {
		errs["cadence"] = fmt.Sprintf("cadence must be one of %s, %s, %s",
			period.CadenceWeekly, period.CadenceMonthly, period.CadenceQuarterly)
	}

	mode := scoring.Mode(in["scoring_mode"])
	target := scoring.Target{Mode: mode}
	switch mode {
	case scoring.ModeAtLeast, scoring.ModeAtMost:
		target.Value = parseFloatField(in, "target_value", errs)
	case scoring.ModeBetween:
		target.Min = parseFloatField(in, "target_min", errs)
		target.Max = parseFloatField(in, "target_max", errs)
		if target.Min != nil && target.Max != nil && *target.Min >= *target.Max {
			errs["target_min"] = "target_min must be less than target_max"
		}
	case scoring.ModeYesNo:
		raw, ok := in["target_boolean"]
		if !ok || raw == "" {
			errs["target_boolean"] = "target_boolean is required for yes_no metrics"
		} else if b, err := strconv.ParseBool(raw); err != nil {
			errs["target_boolean"] = "target_boolean must be true or false"
		} else {
			target.Boolean = &b
		}
	default:
		errs["scoring_mode"] = fmt.Sprintf("scoring_mode must be one of %s, %s, %s, %s",
			scoring.ModeAtLeast, scoring.ModeAtMost, scoring.ModeBetween, scoring.ModeYesNo)
	}

	var owner *string
	if raw := strings.TrimSpace(in["owner_user_id"]); raw != "" {
		owner = &raw
	}

	if len(errs) > 0 {
		return nil, errs
	}

	return &MetricConfig{
		Name:        name,
		Description: strings.TrimSpace(in["description"]),
		Cadence:     cadence,
		Target:      target,
		Unit:        strings.TrimSpace(in["unit"]),
		OwnerUserID: owner,
	}, nil
}

func parseFloatField(in MetricInput, field string, errs ValidationErrors) *float64 {
	raw, ok := in[field]
	if !ok || strings.TrimSpace(raw) == "" {
		errs[field] = field + " is required for this scoring mode"
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		errs[field] = field + " must be a number"
		return nil
	}
	return &v
}

// NewMetric materializes the configuration as a row on the given scorecard.
func (c *MetricConfig) NewMetric(scorecardID string, displayOrder int) *Metric {
	now := time.Now()
	return &Metric{
		ID:            uuid.New().String(),
		ScorecardID:   scorecardID,
		Name:          c.Name,
		Description:   c.Description,
		Cadence:       c.Cadence,
		ScoringMode:   c.Target.Mode,
		TargetValue:   c.Target.Value,
		TargetMin:     c.Target.Min,
		TargetMax:     c.Target.Max,
		TargetBoolean: c.Target.Boolean,
		Unit:          c.Unit,
		OwnerUserID:   c.OwnerUserID,
		DisplayOrder:  displayOrder,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
