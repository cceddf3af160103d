package scorecard

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordedEvent struct {
	Actor, Action, EntityType, EntityID, Detail string
}

type fakeRecorder struct {
	events []recordedEvent
}

func (f *fakeRecorder) Record(ctx context.Context, actor, action, entityType, entityID, detail string) {
	f.events = append(f.events, recordedEvent{actor, action, entityType, entityID, detail})
}

func newTestRouter(db *gorm.DB, recorder AuditRecorder) http.Handler {
	store := NewStore(db)
	return Router(NewLoader(store, nil, DefaultLoaderConfig(), nil), store, recorder)
}

func doRequest(t *testing.T, h http.Handler, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set(userIDHeader, userID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGetAggregateHandlerNotFound(t *testing.T) {
	router := newTestRouter(setupTestDB(t), nil)

	rec := doRequest(t, router, http.MethodGet, "/scorecards/missing", "u1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Scorecard not found", body["error"])
}

func TestGetAggregateHandlerScoresMetrics(t *testing.T) {
	db := setupTestDB(t)
	router := newTestRouter(db, nil)

	sc := newTestScorecard(TypePersonal, "u1")
	require.NoError(t, db.Create(sc).Error)
	m := newTestMetric(sc.ID, "Revenue", 0)
	require.NoError(t, db.Create(m).Error)

	jan6 := time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(newTestEntry(m.ID, jan6, 100)).Error)
	require.NoError(t, db.Create(newTestEntry(m.ID, jan6.AddDate(0, 0, 7), 120)).Error)

	rec := doRequest(t, router, http.MethodGet, "/scorecards/"+sc.ID, "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Metrics []struct {
			Name      string   `json:"name"`
			Score     *float64 `json:"score"`
			Status    string   `json:"scoreStatus"`
			Trend     string   `json:"trend"`
			WoWChange *float64 `json:"wowChange"`
			Entries   []struct {
				Value float64 `json:"value"`
			} `json:"entries"`
		} `json:"metrics"`
		ArchivedCount int64 `json:"archivedCount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Metrics, 1)

	got := body.Metrics[0]
	// Latest entry 120 against a target of at least 100.
	require.NotNil(t, got.Score)
	assert.Equal(t, 120.0, *got.Score)
	assert.Equal(t, "on-target", got.Status)
	require.NotNil(t, got.WoWChange)
	assert.Equal(t, 20.0, *got.WoWChange)
	require.Len(t, got.Entries, 2)
	assert.Equal(t, 120.0, got.Entries[0].Value)
}

func TestListScorecardsHandlerRequiresUser(t *testing.T) {
	router := newTestRouter(setupTestDB(t), nil)

	rec := doRequest(t, router, http.MethodGet, "/scorecards", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListScorecardsHandler(t *testing.T) {
	db := setupTestDB(t)
	router := newTestRouter(db, nil)

	mine := newTestScorecard(TypePersonal, "u1")
	require.NoError(t, db.Create(mine).Error)
	require.NoError(t, db.Create(newTestScorecard(TypePersonal, "other")).Error)

	rec := doRequest(t, router, http.MethodGet, "/scorecards", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body Listings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Yours, 1)
	assert.Equal(t, mine.ID, body.Yours[0].ID)
	assert.Empty(t, body.Company)
}

func TestCreateMetricHandlerValidation(t *testing.T) {
	db := setupTestDB(t)
	router := newTestRouter(db, nil)

	sc := newTestScorecard(TypePersonal, "u1")
	require.NoError(t, db.Create(sc).Error)

	rec := doRequest(t, router, http.MethodPost, "/scorecards/"+sc.ID+"/metrics", "u1", MetricInput{
		"name":         "Revenue",
		"cadence":      "weekly",
		"scoring_mode": "between",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body struct {
		FieldErrors map[string]string `json:"fieldErrors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.FieldErrors, "target_min")
	assert.Contains(t, body.FieldErrors, "target_max")
}

func TestCreateMetricHandlerRecordsAudit(t *testing.T) {
	db := setupTestDB(t)
	recorder := &fakeRecorder{}
	router := newTestRouter(db, recorder)

	sc := newTestScorecard(TypePersonal, "u1")
	require.NoError(t, db.Create(sc).Error)

	rec := doRequest(t, router, http.MethodPost, "/scorecards/"+sc.ID+"/metrics", "u1", MetricInput{
		"name":         "Revenue",
		"cadence":      "weekly",
		"scoring_mode": "at_least",
		"target_value": "100",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	require.Len(t, recorder.events, 1)
	assert.Equal(t, "u1", recorder.events[0].Actor)
	assert.Equal(t, "metric.create", recorder.events[0].Action)
	assert.Equal(t, "Revenue", recorder.events[0].Detail)
}

func TestReorderMetricsHandler(t *testing.T) {
	db := setupTestDB(t)
	router := newTestRouter(db, nil)

	sc := newTestScorecard(TypePersonal, "u1")
	require.NoError(t, db.Create(sc).Error)
	a := newTestMetric(sc.ID, "A", 0)
	b := newTestMetric(sc.ID, "B", 1)
	require.NoError(t, db.Create(a).Error)
	require.NoError(t, db.Create(b).Error)

	rec := doRequest(t, router, http.MethodPost, "/scorecards/"+sc.ID+"/metrics:reorder", "u1",
		map[string][]string{"orderedIds": {b.ID, a.ID}})
	require.Equal(t, http.StatusOK, rec.Code)

	metrics, err := NewStore(db).ListActiveMetrics(context.Background(), sc.ID)
	require.NoError(t, err)
	assert.Equal(t, "B", metrics[0].Name)

	rec = doRequest(t, router, http.MethodPost, "/scorecards/"+sc.ID+"/metrics:reorder", "u1",
		map[string][]string{"orderedIds": {a.ID, "bogus"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestArchiveMetricHandler(t *testing.T) {
	db := setupTestDB(t)
	recorder := &fakeRecorder{}
	router := newTestRouter(db, recorder)

	sc := newTestScorecard(TypePersonal, "u1")
	require.NoError(t, db.Create(sc).Error)
	m := newTestMetric(sc.ID, "M", 0)
	require.NoError(t, db.Create(m).Error)

	rec := doRequest(t, router, http.MethodPost, "/metrics/"+m.ID+":archive", "admin",
		map[string]string{"reason": "retired"})
	require.Equal(t, http.StatusOK, rec.Code)

	var got Metric
	require.NoError(t, db.First(&got, "id = ?", m.ID).Error)
	assert.True(t, got.IsArchived)
	assert.Equal(t, "retired", got.ArchivedReason)

	require.Len(t, recorder.events, 1)
	assert.Equal(t, "metric.archive", recorder.events[0].Action)

	rec = doRequest(t, router, http.MethodPost, "/metrics/"+m.ID+":archive", "admin",
		map[string]string{"reason": "again"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateEntryHandler(t *testing.T) {
	db := setupTestDB(t)
	router := newTestRouter(db, nil)

	sc := newTestScorecard(TypePersonal, "u1")
	require.NoError(t, db.Create(sc).Error)
	m := newTestMetric(sc.ID, "M", 0)
	require.NoError(t, db.Create(m).Error)

	rec := doRequest(t, router, http.MethodPost, "/metrics/"+m.ID+"/entries", "u1",
		map[string]any{"value": 42.0, "periodStart": "2025-01-08", "note": "solid week"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var entry MetricEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	assert.Equal(t, 42.0, entry.Value)
	assert.Equal(t, "2025-01-06", entry.PeriodStart.Format("2006-01-02"))
	assert.Equal(t, "u1", entry.CreatedBy)

	rec = doRequest(t, router, http.MethodPost, "/metrics/"+m.ID+"/entries", "u1",
		map[string]any{"value": 1.0, "periodStart": "not-a-date"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/metrics/missing/entries", "u1",
		map[string]any{"value": 1.0})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetCopyableMetricsHandlerNonRoleEmpty(t *testing.T) {
	db := setupTestDB(t)
	router := newTestRouter(db, nil)

	sc := newTestScorecard(TypePersonal, "u1")
	require.NoError(t, db.Create(sc).Error)

	rec := doRequest(t, router, http.MethodGet, "/scorecards/"+sc.ID+"/copyable-metrics", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		CopyableMetrics []Metric `json:"copyableMetrics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body.CopyableMetrics)
}

func TestGetEligibleOwnersHandler(t *testing.T) {
	db := setupTestDB(t)
	router := newTestRouter(db, nil)

	require.NoError(t, db.Create(newTestProfile("owner", "Olive", "olive@example.com")).Error)
	sc := newTestScorecard(TypePersonal, "owner")
	require.NoError(t, db.Create(sc).Error)

	rec := doRequest(t, router, http.MethodGet, "/scorecards/"+sc.ID+"/eligible-owners", "owner", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		EligibleOwners []Profile `json:"eligibleOwners"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.EligibleOwners, 1)
	assert.Equal(t, "Olive", body.EligibleOwners[0].FullName)
}
