package scorecard

import (
	"context"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// LoadEligibleOwners resolves which people may own metrics on a scorecard.
// Role scorecards admit only the scorecard's own owner. Team scorecards
// admit the union of the declared owner, current team members, and anyone
// manually granted scorecard membership: a union across the three sources,
// never an intersection, and never just the team roster. Personal
// scorecards admit the owner. The result is profiles ordered by name.
func (l *Loader) LoadEligibleOwners(ctx context.Context, sc *Scorecard) ([]Profile, error) {
	eligible := mapset.NewThreadUnsafeSet(sc.OwnerUserID)

	if sc.Type == TypeTeam {
		if sc.TeamID != nil {
			teamIDs, err := l.store.TeamMemberUserIDs(ctx, *sc.TeamID)
			if err != nil {
				l.logger.Warn("team member fetch failed, defaulting to empty",
					"teamId", *sc.TeamID, "error", err)
			}
			eligible.Append(teamIDs...)
		}

		memberIDs, err := l.store.ScorecardMemberUserIDs(ctx, sc.ID)
		if err != nil {
			l.logger.Warn("scorecard member fetch failed, defaulting to empty",
				"scorecardId", sc.ID, "error", err)
		}
		eligible.Append(memberIDs...)
	}

	profiles, err := l.store.GetProfiles(ctx, eligible.ToSlice())
	if err != nil {
		l.logger.Warn("eligible owner profile fetch failed, defaulting to empty",
			"scorecardId", sc.ID, "error", err)
		return []Profile{}, nil
	}

	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].FullName < profiles[j].FullName
	})
	return profiles, nil
}
