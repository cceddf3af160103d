package scorecard

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEligibleOwnersTeamUnion(t *testing.T) {
	db := setupTestDB(t)
	loader := newTestLoader(db)

	require.NoError(t, db.Create(newTestProfile("owner", "Olive", "olive@example.com")).Error)
	require.NoError(t, db.Create(newTestProfile("teammate", "Arnold", "arnold@example.com")).Error)
	require.NoError(t, db.Create(newTestProfile("guest", "Zed", "zed@example.com")).Error)

	sc := createTeamCard(t, db, "owner", "team-1")
	require.NoError(t, db.Create(&TeamMember{
		ID: uuid.New().String(), TeamID: "team-1", UserID: "teammate",
	}).Error)
	require.NoError(t, db.Create(&ScorecardMember{
		ID: uuid.New().String(), ScorecardID: sc.ID, UserID: "guest",
	}).Error)

	profiles, err := loader.LoadEligibleOwners(context.Background(), sc)
	require.NoError(t, err)
	require.Len(t, profiles, 3)

	// Union of owner, team roster, and granted members, sorted by name.
	assert.Equal(t, "Arnold", profiles[0].FullName)
	assert.Equal(t, "Olive", profiles[1].FullName)
	assert.Equal(t, "Zed", profiles[2].FullName)
}

func TestLoadEligibleOwnersDeduplicates(t *testing.T) {
	db := setupTestDB(t)
	loader := newTestLoader(db)

	require.NoError(t, db.Create(newTestProfile("owner", "Olive", "olive@example.com")).Error)

	// Owner is also on the team and has an explicit membership.
	sc := createTeamCard(t, db, "owner", "team-1")
	require.NoError(t, db.Create(&TeamMember{
		ID: uuid.New().String(), TeamID: "team-1", UserID: "owner",
	}).Error)
	require.NoError(t, db.Create(&ScorecardMember{
		ID: uuid.New().String(), ScorecardID: sc.ID, UserID: "owner",
	}).Error)

	profiles, err := loader.LoadEligibleOwners(context.Background(), sc)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "owner", profiles[0].ID)
}

func TestLoadEligibleOwnersPersonalIsOwnerOnly(t *testing.T) {
	db := setupTestDB(t)
	loader := newTestLoader(db)

	require.NoError(t, db.Create(newTestProfile("owner", "Olive", "olive@example.com")).Error)
	require.NoError(t, db.Create(newTestProfile("other", "Arnold", "arnold@example.com")).Error)

	sc := newTestScorecard(TypePersonal, "owner")
	require.NoError(t, db.Create(sc).Error)

	profiles, err := loader.LoadEligibleOwners(context.Background(), sc)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "owner", profiles[0].ID)
}

func TestLoadEligibleOwnersRoleIsOwnerOnly(t *testing.T) {
	db := setupTestDB(t)
	loader := newTestLoader(db)

	require.NoError(t, db.Create(newTestProfile("owner", "Olive", "olive@example.com")).Error)

	sc := newTestScorecard(TypeRole, "owner")
	sc.RoleID = strRef("role-1")
	require.NoError(t, db.Create(sc).Error)
	// Even with a team id set, role scorecards do not consult rosters.
	require.NoError(t, db.Create(&TeamMember{
		ID: uuid.New().String(), TeamID: "team-1", UserID: "other",
	}).Error)

	profiles, err := loader.LoadEligibleOwners(context.Background(), sc)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "owner", profiles[0].ID)
}
