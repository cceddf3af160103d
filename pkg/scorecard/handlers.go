package scorecard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/orgpulse/scorecard/pkg/scoring"
)

// AuditRecorder receives mutation events. A nil recorder disables
// auditing. Satisfied by audit.Store.
type AuditRecorder interface {
	Record(ctx context.Context, actor, action, entityType, entityID, detail string)
}

// userIDHeader carries the pre-authenticated caller identity. Session
// handling lives outside this service; by the time a request lands here
// the gateway has already authenticated it.
const userIDHeader = "X-User-Id"

func requestUserID(r *http.Request) string {
	return r.Header.Get(userIDHeader)
}

// scoredMetric decorates a hydrated metric with its derived signals: the
// score and status of the latest entry, the trend over the entry history,
// and the signed distance from goal.
type scoredMetric struct {
	MetricWithEntries
	Score       *float64       `json:"score,omitempty"`
	ScoreStatus scoring.Status `json:"scoreStatus,omitempty"`
	Trend       scoring.Trend  `json:"trend"`
	VsGoal      *float64       `json:"vsGoal,omitempty"`
	WoWChange   *float64       `json:"wowChange,omitempty"`
}

func scoreMetric(m MetricWithEntries) scoredMetric {
	sm := scoredMetric{MetricWithEntries: m, Trend: scoring.TrendFlat}
	if len(m.Entries) == 0 {
		return sm
	}

	target := m.Target()
	latest := m.Entries[0].Value

	score := scoring.Score(latest, target)
	vsGoal := scoring.VsGoal(latest, target)
	sm.Score = &score
	sm.ScoreStatus = scoring.StatusFor(score)
	sm.VsGoal = &vsGoal

	// Entries arrive newest first; trend wants oldest first.
	values := make([]float64, len(m.Entries))
	for i, e := range m.Entries {
		values[len(m.Entries)-1-i] = e.Value
	}
	sm.Trend = scoring.TrendOf(values)

	if len(m.Entries) > 1 {
		if change, ok := scoring.WeekOverWeek(latest, m.Entries[1].Value, true); ok {
			sm.WoWChange = &change
		}
	}
	return sm
}

// GetAggregateHandler handles GET /scorecards/{scorecardId}.
func GetAggregateHandler(l *Loader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scorecardID := chi.URLParam(r, "scorecardId")

		agg, err := l.LoadAggregate(r.Context(), scorecardID, requestUserID(r))
		if err != nil {
			if errors.Is(err, ErrScorecardNotFound) {
				writeError(w, http.StatusNotFound, "Scorecard not found")
				return
			}
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load scorecard: %v", err))
			return
		}

		scored := make([]scoredMetric, len(agg.Metrics))
		for i, m := range agg.Metrics {
			scored[i] = scoreMetric(m)
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"scorecard":       agg.Scorecard,
			"metrics":         scored,
			"archivedMetrics": agg.ArchivedMetrics,
			"archivedCount":   agg.ArchivedCount,
			"employees":       agg.Employees,
		})
	}
}

// GetArchivedMetricsHandler handles GET /scorecards/{scorecardId}/archived.
func GetArchivedMetricsHandler(l *Loader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scorecardID := chi.URLParam(r, "scorecardId")

		metrics, err := l.LoadArchivedMetrics(r.Context(), scorecardID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load archived metrics: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"archivedMetrics": metrics})
	}
}

// ListScorecardsHandler handles GET /scorecards.
func ListScorecardsHandler(l *Loader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := requestUserID(r)
		if userID == "" {
			writeError(w, http.StatusBadRequest, "missing "+userIDHeader+" header")
			return
		}

		listings, err := l.LoadListings(r.Context(), userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load scorecards: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, listings)
	}
}

// GetEligibleOwnersHandler handles GET /scorecards/{scorecardId}/eligible-owners.
func GetEligibleOwnersHandler(l *Loader, store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scorecardID := chi.URLParam(r, "scorecardId")

		sc, err := store.GetScorecard(r.Context(), scorecardID)
		if err != nil {
			if errors.Is(err, ErrScorecardNotFound) {
				writeError(w, http.StatusNotFound, "Scorecard not found")
				return
			}
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get scorecard: %v", err))
			return
		}

		owners, err := l.LoadEligibleOwners(r.Context(), sc)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load eligible owners: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"eligibleOwners": owners})
	}
}

// GetCopyableMetricsHandler handles GET /scorecards/{scorecardId}/copyable-metrics.
// Only meaningful for role scorecards; others get an empty list.
func GetCopyableMetricsHandler(l *Loader, store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scorecardID := chi.URLParam(r, "scorecardId")

		sc, err := store.GetScorecard(r.Context(), scorecardID)
		if err != nil {
			if errors.Is(err, ErrScorecardNotFound) {
				writeError(w, http.StatusNotFound, "Scorecard not found")
				return
			}
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get scorecard: %v", err))
			return
		}

		if sc.RoleID == nil {
			writeJSON(w, http.StatusOK, map[string]any{"copyableMetrics": []Metric{}})
			return
		}

		metrics, err := l.LoadCopyableMetrics(r.Context(), *sc.RoleID, scorecardID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load copyable metrics: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"copyableMetrics": metrics})
	}
}

// CreateMetricHandler handles POST /scorecards/{scorecardId}/metrics with a
// form-style string bag body validated into a mode-narrowed configuration.
func CreateMetricHandler(store *Store, recorder AuditRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scorecardID := chi.URLParam(r, "scorecardId")

		var input MetricInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		cfg, verrs := ParseMetricInput(input)
		if verrs != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":       "validation failed",
				"fieldErrors": verrs,
			})
			return
		}

		if _, err := store.GetScorecard(r.Context(), scorecardID); err != nil {
			if errors.Is(err, ErrScorecardNotFound) {
				writeError(w, http.StatusNotFound, "Scorecard not found")
				return
			}
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get scorecard: %v", err))
			return
		}

		metric, err := store.CreateMetric(r.Context(), scorecardID, cfg)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to create metric: %v", err))
			return
		}

		if recorder != nil {
			recorder.Record(r.Context(), requestUserID(r), "metric.create", "metric", metric.ID, metric.Name)
		}
		writeJSON(w, http.StatusCreated, metric)
	}
}

// ReorderMetricsHandler handles POST /scorecards/{scorecardId}/metrics:reorder.
// The batch is transactional: a single bad id rolls back every move.
func ReorderMetricsHandler(store *Store, recorder AuditRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scorecardID := chi.URLParam(r, "scorecardId")

		var body struct {
			OrderedIDs []string `json:"orderedIds"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := store.ReorderMetrics(r.Context(), scorecardID, body.OrderedIDs); err != nil {
			if errors.Is(err, ErrMetricNotFound) {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("reorder rejected: %v", err))
				return
			}
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to reorder metrics: %v", err))
			return
		}

		if recorder != nil {
			recorder.Record(r.Context(), requestUserID(r), "metric.reorder", "scorecard", scorecardID,
				fmt.Sprintf("%d metrics", len(body.OrderedIDs)))
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "reordered"})
	}
}

// ArchiveMetricHandler handles POST /metrics/{metricId}:archive.
func ArchiveMetricHandler(store *Store, recorder AuditRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricID := chi.URLParam(r, "metricId")
		actor := requestUserID(r)

		var body struct {
			Reason string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := store.ArchiveMetric(r.Context(), metricID, actor, body.Reason); err != nil {
			if errors.Is(err, ErrMetricNotFound) {
				writeError(w, http.StatusNotFound, fmt.Sprintf("metric %q not found or already archived", metricID))
				return
			}
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to archive metric: %v", err))
			return
		}

		if recorder != nil {
			recorder.Record(r.Context(), actor, "metric.archive", "metric", metricID, body.Reason)
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "archived"})
	}
}

// CreateEntryHandler handles POST /metrics/{metricId}/entries.
func CreateEntryHandler(store *Store, recorder AuditRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricID := chi.URLParam(r, "metricId")

		var body struct {
			Value       float64 `json:"value"`
			PeriodStart string  `json:"periodStart"`
			Note        string  `json:"note"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		at := time.Now()
		if body.PeriodStart != "" {
			parsed, err := time.Parse("2006-01-02", body.PeriodStart)
			if err != nil {
				writeError(w, http.StatusBadRequest, "periodStart must be YYYY-MM-DD")
				return
			}
			at = parsed
		}

		entry, err := store.CreateEntry(r.Context(), metricID, at, body.Value, body.Note, requestUserID(r))
		if err != nil {
			if errors.Is(err, ErrMetricNotFound) {
				writeError(w, http.StatusNotFound, fmt.Sprintf("metric %q not found", metricID))
				return
			}
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to create entry: %v", err))
			return
		}

		if recorder != nil {
			recorder.Record(r.Context(), requestUserID(r), "entry.create", "metric", metricID, entry.ID)
		}
		writeJSON(w, http.StatusCreated, entry)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
