package scorecard

import (
	"context"
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// metricSignature is the structural identity used to deduplicate copyable
// metrics: case-insensitive name plus scoring mode. Two metrics with the
// same signature are the same metric for copying purposes even when their
// ids differ.
func metricSignature(m Metric) string {
	return fmt.Sprintf("%s|%s", strings.ToLower(m.Name), m.ScoringMode)
}

// LoadCopyableMetrics finds metrics on other active scorecards sharing the
// given role that could be copied onto the target scorecard. Metrics whose
// signature already exists on the target are excluded.
func (l *Loader) LoadCopyableMetrics(ctx context.Context, roleID, targetScorecardID string) ([]Metric, error) {
	existing, err := l.store.ListActiveMetrics(ctx, targetScorecardID)
	if err != nil {
		return nil, fmt.Errorf("load target metrics: %w", err)
	}
	existingSignatures := mapset.NewThreadUnsafeSet[string]()
	for _, m := range existing {
		existingSignatures.Add(metricSignature(m))
	}

	cards, err := l.store.ListScorecardsByRole(ctx, roleID)
	if err != nil {
		l.logger.Warn("role scorecard fetch failed, defaulting to empty",
			"roleId", roleID, "error", err)
		return []Metric{}, nil
	}

	sourceIDs := make([]string, 0, len(cards))
	for _, sc := range cards {
		if sc.ID != targetScorecardID {
			sourceIDs = append(sourceIDs, sc.ID)
		}
	}
	if len(sourceIDs) == 0 {
		return []Metric{}, nil
	}

	candidates, err := l.store.ListMetricsForScorecards(ctx, sourceIDs)
	if err != nil {
		l.logger.Warn("candidate metric fetch failed, defaulting to empty",
			"roleId", roleID, "error", err)
		return []Metric{}, nil
	}

	copyable := make([]Metric, 0, len(candidates))
	seen := mapset.NewThreadUnsafeSet[string]()
	for _, m := range candidates {
		sig := metricSignature(m)
		if existingSignatures.Contains(sig) || !seen.Add(sig) {
			continue
		}
		copyable = append(copyable, m)
	}
	return copyable, nil
}
