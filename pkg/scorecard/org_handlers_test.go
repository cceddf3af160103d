package scorecard

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/orgpulse/scorecard/pkg/hierarchy"
	"github.com/orgpulse/scorecard/pkg/orgchart"
)

func seedOrg(t *testing.T, db *gorm.DB) {
	t.Helper()
	ceo := newTestProfile("ceo", "Casey", "ceo@example.com")
	vp := newTestProfile("vp", "Val", "vp@example.com")
	vp.ManagerID = strRef("ceo")
	ic := newTestProfile("ic", "Ira", "ic@example.com")
	ic.ManagerID = strRef("vp")
	for _, p := range []*Profile{ceo, vp, ic} {
		require.NoError(t, db.Create(p).Error)
	}

	roles := []*Role{
		{ID: "r-root", Name: "CEO", DisplayOrder: 0, IsActive: true},
		{ID: "r-ops", Name: "Ops", AccountableToID: strRef("r-root"), DisplayOrder: 1, IsActive: true},
		{ID: "r-sales", Name: "Sales", AccountableToID: strRef("r-root"), DisplayOrder: 2, IsActive: true},
	}
	for _, role := range roles {
		require.NoError(t, db.Create(role).Error)
	}
}

func TestGetManagerChainHandler(t *testing.T) {
	db := setupTestDB(t)
	seedOrg(t, db)
	router := newTestRouter(db, nil)

	rec := doRequest(t, router, http.MethodGet, "/hierarchy/manager-chain/ic", "ic", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		ManagerChain []hierarchy.Profile `json:"managerChain"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.ManagerChain, 2)
	assert.Equal(t, "vp", body.ManagerChain[0].ID)
	assert.Equal(t, "ceo", body.ManagerChain[1].ID)
}

func TestGetReportsHandler(t *testing.T) {
	db := setupTestDB(t)
	seedOrg(t, db)
	router := newTestRouter(db, nil)

	rec := doRequest(t, router, http.MethodGet, "/hierarchy/reports/ceo", "ceo", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Reports []hierarchy.Profile `json:"reports"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Reports, 1)
	assert.Equal(t, "vp", body.Reports[0].ID)

	rec = doRequest(t, router, http.MethodGet, "/hierarchy/reports/ceo?recursive=true", "ceo", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Reports, 2)

	// Unknown user degrades to an empty list, not an error.
	rec = doRequest(t, router, http.MethodGet, "/hierarchy/reports/nobody", "ceo", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body.Reports)
}

func TestGetRoleChainHandler(t *testing.T) {
	db := setupTestDB(t)
	seedOrg(t, db)
	router := newTestRouter(db, nil)

	rec := doRequest(t, router, http.MethodGet, "/hierarchy/role-chain/r-ops", "ic", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		RoleChain []hierarchy.Role `json:"roleChain"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.RoleChain, 1)
	assert.Equal(t, "r-root", body.RoleChain[0].ID)
}

func TestGetOrgChartHandler(t *testing.T) {
	db := setupTestDB(t)
	seedOrg(t, db)
	router := newTestRouter(db, nil)

	rec := doRequest(t, router, http.MethodGet, "/orgchart", "ic", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var flow orgchart.Flow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &flow))
	assert.Len(t, flow.Nodes, 3)
	assert.Len(t, flow.Edges, 2)
}
