package scorecard

import (
	"github.com/go-chi/chi/v5"
)

// Router creates a chi.Router for the scorecard API. recorder may be nil
// to disable audit events.
func Router(loader *Loader, store *Store, recorder AuditRecorder) chi.Router {
	r := chi.NewRouter()

	r.Get("/scorecards", ListScorecardsHandler(loader))
	r.Get("/scorecards/{scorecardId}", GetAggregateHandler(loader))
	r.Get("/scorecards/{scorecardId}/archived", GetArchivedMetricsHandler(loader))
	r.Get("/scorecards/{scorecardId}/eligible-owners", GetEligibleOwnersHandler(loader, store))
	r.Get("/scorecards/{scorecardId}/copyable-metrics", GetCopyableMetricsHandler(loader, store))
	r.Post("/scorecards/{scorecardId}/metrics", CreateMetricHandler(store, recorder))
	r.Post("/scorecards/{scorecardId}/metrics:reorder", ReorderMetricsHandler(store, recorder))

	r.Post("/metrics/{metricId}:archive", ArchiveMetricHandler(store, recorder))
	r.Post("/metrics/{metricId}/entries", CreateEntryHandler(store, recorder))

	r.Get("/hierarchy/manager-chain/{userId}", GetManagerChainHandler(store))
	r.Get("/hierarchy/reports/{userId}", GetReportsHandler(store))
	r.Get("/hierarchy/role-chain/{roleId}", GetRoleChainHandler(store))
	r.Get("/orgchart", GetOrgChartHandler(store))

	return r
}
