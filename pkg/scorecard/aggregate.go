package scorecard

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Loader assembles scorecard aggregates from independently fetched record
// sets. The scorecard fetch is the one required read; metrics, entries,
// owners, employees, and the archived count are best-effort: a failure is
// logged and the aggregate carries the empty default instead.
type Loader struct {
	store  *Store
	rpc    AggregateRPC
	cfg    *LoaderConfig
	logger *slog.Logger
}

// NewLoader creates a Loader. rpc may be nil, in which case the
// multi-query path is always used. A nil logger falls back to
// slog.Default().
func NewLoader(store *Store, rpc AggregateRPC, cfg *LoaderConfig, logger *slog.Logger) *Loader {
	if cfg == nil {
		cfg = DefaultLoaderConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{store: store, rpc: rpc, cfg: cfg, logger: logger}
}

// LoadAggregate builds the read model for one scorecard. The scorecard
// must exist and be active, otherwise ErrScorecardNotFound. When the RPC
// fast path is enabled and wired, the pre-joined document it returns is
// used instead of the multi-query assembly; a transport failure falls back
// to multi-query, while an error the procedure itself reports is surfaced.
// Either path yields the same aggregate shape, and both finish with the
// same archived-count hydration because the procedure does not include
// archived metrics.
func (l *Loader) LoadAggregate(ctx context.Context, scorecardID, userID string) (*Aggregate, error) {
	sc, err := l.store.GetScorecard(ctx, scorecardID)
	if err != nil {
		return nil, err
	}

	var agg *Aggregate
	if l.cfg.UseRPC && l.rpc != nil {
		agg, err = l.rpc.GetScorecardAggregate(ctx, scorecardID, userID)
		if err != nil {
			if IsRPCReported(err) {
				return nil, err
			}
			l.logger.Warn("aggregate rpc failed, falling back to multi-query",
				"scorecardId", scorecardID, "error", err)
			agg = nil
		}
	}
	if agg == nil {
		agg, err = l.loadMultiQuery(ctx, sc)
		if err != nil {
			return nil, err
		}
	} else {
		agg.Scorecard = *sc
	}

	// Archived metrics stay an empty placeholder on every path; only the
	// count is hydrated here. Full hydration is LoadArchivedMetrics.
	agg.ArchivedMetrics = []MetricWithEntries{}
	count, err := l.store.CountArchivedMetrics(ctx, scorecardID)
	if err != nil {
		l.logger.Warn("archived count fetch failed, defaulting to zero",
			"scorecardId", scorecardID, "error", err)
		count = 0
	}
	agg.ArchivedCount = count

	return agg, nil
}

// loadMultiQuery is the in-process assembly path: fan out the independent
// record fetches, join once all branches have resolved, merge in-process.
func (l *Loader) loadMultiQuery(ctx context.Context, sc *Scorecard) (*Aggregate, error) {
	var (
		metrics   []Metric
		employees []Profile
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		metrics, err = l.store.ListActiveMetrics(gctx, sc.ID)
		if err != nil {
			l.logger.Warn("metric fetch failed, defaulting to empty",
				"scorecardId", sc.ID, "error", err)
			metrics = nil
		}
		return nil
	})
	g.Go(func() error {
		var err error
		employees, err = l.store.ListActiveProfiles(gctx)
		if err != nil {
			l.logger.Warn("employee fetch failed, defaulting to empty", "error", err)
			employees = nil
		}
		return nil
	})
	// Branches absorb their own failures, so Wait only joins.
	_ = g.Wait()

	withEntries, err := l.hydrateMetrics(ctx, metrics)
	if err != nil {
		return nil, err
	}

	return &Aggregate{
		Scorecard: *sc,
		Metrics:   withEntries,
		Employees: employees,
	}, nil
}

// hydrateMetrics attaches entries and owner identities to a metric set.
// Entries for all metrics come back in one batched query and owner
// profiles in another; a per-metric query loop would cost O(n) round trips
// and is deliberately not an option here.
func (l *Loader) hydrateMetrics(ctx context.Context, metrics []Metric) ([]MetricWithEntries, error) {
	withEntries := make([]MetricWithEntries, 0, len(metrics))
	if len(metrics) == 0 {
		return withEntries, nil
	}

	metricIDs := make([]string, 0, len(metrics))
	ownerIDSet := make(map[string]struct{})
	for _, m := range metrics {
		metricIDs = append(metricIDs, m.ID)
		if m.OwnerUserID != nil {
			ownerIDSet[*m.OwnerUserID] = struct{}{}
		}
	}
	ownerIDs := make([]string, 0, len(ownerIDSet))
	for id := range ownerIDSet {
		ownerIDs = append(ownerIDs, id)
	}

	var (
		entries []MetricEntry
		owners  []Profile
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = l.store.ListEntriesForMetrics(gctx, metricIDs)
		if err != nil {
			l.logger.Warn("entry fetch failed, defaulting to empty", "error", err)
			entries = nil
		}
		return nil
	})
	g.Go(func() error {
		var err error
		owners, err = l.store.GetProfiles(gctx, ownerIDs)
		if err != nil {
			l.logger.Warn("owner fetch failed, defaulting to empty", "error", err)
			owners = nil
		}
		return nil
	})
	_ = g.Wait()

	entriesByMetric := make(map[string][]MetricEntry, len(metrics))
	for _, e := range entries {
		entriesByMetric[e.MetricID] = append(entriesByMetric[e.MetricID], e)
	}
	ownerByID := make(map[string]OwnerIdentity, len(owners))
	for _, p := range owners {
		ownerByID[p.ID] = OwnerIdentity{
			ID:        p.ID,
			FullName:  p.FullName,
			Email:     p.Email,
			AvatarURL: p.AvatarURL,
		}
	}

	for _, m := range metrics {
		mwe := MetricWithEntries{
			Metric:  m,
			Entries: entriesByMetric[m.ID],
		}
		if mwe.Entries == nil {
			mwe.Entries = []MetricEntry{}
		}
		if m.OwnerUserID != nil {
			if owner, ok := ownerByID[*m.OwnerUserID]; ok {
				mwe.Owner = &owner
			}
		}
		withEntries = append(withEntries, mwe)
	}
	return withEntries, nil
}

// LoadArchivedMetrics hydrates a scorecard's archived metrics on demand,
// with the same batched join strategy as the active set.
func (l *Loader) LoadArchivedMetrics(ctx context.Context, scorecardID string) ([]MetricWithEntries, error) {
	metrics, err := l.store.ListArchivedMetrics(ctx, scorecardID)
	if err != nil {
		l.logger.Warn("archived metric fetch failed, defaulting to empty",
			"scorecardId", scorecardID, "error", err)
		return []MetricWithEntries{}, nil
	}
	return l.hydrateMetrics(ctx, metrics)
}
