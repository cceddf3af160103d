package scorecard

import (
	"context"

	mapset "github.com/deckarep/golang-set/v2"

	"golang.org/x/sync/errgroup"
)

// Listings partitions the active scorecards for one user: the ones related
// to them, and everyone else's (populated for admins only).
type Listings struct {
	Yours   []Scorecard `json:"yourScorecards"`
	Company []Scorecard `json:"companyScorecards"`
}

// listingFacts holds the pre-fetched relation sets a qualifying predicate
// may consult. Everything is batched up front so predicates stay pure.
type listingFacts struct {
	userID           string
	teamIDs          mapset.Set[string]
	memberCardIDs    mapset.Set[string]
	ownedMetricCards mapset.Set[string]
	// managerReportIDs holds the ids of the user's direct reports, for the
	// manager-of-team-owner relation.
	managerReportIDs mapset.Set[string]
}

// qualifyingRelation decides whether one scorecard counts as yours. The
// relation set has changed over this system's history, so the active set
// is assembled from config instead of being a fixed boolean expression.
type qualifyingRelation func(sc Scorecard, facts *listingFacts) bool

func relationOwner(sc Scorecard, f *listingFacts) bool {
	return sc.OwnerUserID == f.userID
}

func relationMetricOwner(sc Scorecard, f *listingFacts) bool {
	return f.ownedMetricCards.Contains(sc.ID)
}

func relationScorecardMember(sc Scorecard, f *listingFacts) bool {
	return f.memberCardIDs.Contains(sc.ID)
}

func relationTeamMember(sc Scorecard, f *listingFacts) bool {
	return sc.Type == TypeTeam && sc.TeamID != nil && f.teamIDs.Contains(*sc.TeamID)
}

func relationManagerOfTeamOwner(sc Scorecard, f *listingFacts) bool {
	return sc.Type == TypeTeam && f.managerReportIDs.Contains(sc.OwnerUserID)
}

// qualifyingRelations assembles the active predicate set from config.
func (l *Loader) qualifyingRelations() []qualifyingRelation {
	relations := []qualifyingRelation{
		relationOwner,
		relationMetricOwner,
		relationScorecardMember,
		relationTeamMember,
	}
	if l.cfg.IncludeManagerOfTeamOwner {
		relations = append(relations, relationManagerOfTeamOwner)
	}
	return relations
}

// LoadListings partitions all active scorecards into yours and company
// for the given user. The scorecard list itself is the required fetch;
// the relation sets are best-effort and degrade to empty, which can only
// shrink the yours list, never fail the operation. Company scorecards are
// returned only when the user is a system admin.
func (l *Loader) LoadListings(ctx context.Context, userID string) (*Listings, error) {
	cards, err := l.store.ListActiveScorecards(ctx)
	if err != nil {
		return nil, err
	}

	facts := &listingFacts{
		userID:           userID,
		teamIDs:          mapset.NewThreadUnsafeSet[string](),
		memberCardIDs:    mapset.NewThreadUnsafeSet[string](),
		ownedMetricCards: mapset.NewThreadUnsafeSet[string](),
		managerReportIDs: mapset.NewThreadUnsafeSet[string](),
	}

	var user *Profile
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = l.store.GetProfile(gctx, userID)
		if err != nil {
			l.logger.Warn("profile fetch failed, treating user as non-admin",
				"userId", userID, "error", err)
			user = nil
		}
		return nil
	})
	g.Go(func() error {
		ids, err := l.store.TeamIDsForUser(gctx, userID)
		if err != nil {
			l.logger.Warn("team membership fetch failed, defaulting to empty",
				"userId", userID, "error", err)
			return nil
		}
		facts.teamIDs.Append(ids...)
		return nil
	})
	g.Go(func() error {
		ids, err := l.store.MemberScorecardIDs(gctx, userID)
		if err != nil {
			l.logger.Warn("scorecard membership fetch failed, defaulting to empty",
				"userId", userID, "error", err)
			return nil
		}
		facts.memberCardIDs.Append(ids...)
		return nil
	})
	g.Go(func() error {
		ids, err := l.store.OwnedMetricScorecardIDs(gctx, userID)
		if err != nil {
			l.logger.Warn("owned metric fetch failed, defaulting to empty",
				"userId", userID, "error", err)
			return nil
		}
		facts.ownedMetricCards.Append(ids...)
		return nil
	})
	if l.cfg.IncludeManagerOfTeamOwner {
		g.Go(func() error {
			ids, err := l.store.DirectReportIDs(gctx, userID)
			if err != nil {
				l.logger.Warn("report fetch failed, defaulting to empty",
					"userId", userID, "error", err)
				return nil
			}
			facts.managerReportIDs.Append(ids...)
			return nil
		})
	}
	_ = g.Wait()

	relations := l.qualifyingRelations()
	isAdmin := user != nil && user.IsAdmin

	listings := &Listings{
		Yours:   []Scorecard{},
		Company: []Scorecard{},
	}
	for _, sc := range cards {
		yours := false
		for _, qualifies := range relations {
			if qualifies(sc, facts) {
				yours = true
				break
			}
		}
		switch {
		case yours:
			listings.Yours = append(listings.Yours, sc)
		case isAdmin:
			listings.Company = append(listings.Company, sc)
		}
	}
	return listings, nil
}
