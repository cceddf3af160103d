package scorecard

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/orgpulse/scorecard/pkg/hierarchy"
	"github.com/orgpulse/scorecard/pkg/orgchart"
)

// The hierarchy resolver works on flat in-memory record sets rebuilt per
// request, so these handlers fetch the full active forest and hand it to
// the resolver. A fetch failure degrades to an empty forest, matching the
// resolver's own silent-truncation policy.

func (s *Store) hierarchyProfiles(r *http.Request) []hierarchy.Profile {
	profiles, err := s.ListActiveProfiles(r.Context())
	if err != nil {
		return nil
	}
	out := make([]hierarchy.Profile, len(profiles))
	for i, p := range profiles {
		out[i] = p.HierarchyProfile()
	}
	return out
}

// GetManagerChainHandler handles GET /hierarchy/manager-chain/{userId}.
func GetManagerChainHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userId")
		chain := hierarchy.ManagerChain(store.hierarchyProfiles(r), userID)
		if chain == nil {
			chain = []hierarchy.Profile{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"managerChain": chain})
	}
}

// GetReportsHandler handles GET /hierarchy/reports/{userId}. With
// recursive=true the whole subtree is returned, otherwise only direct
// reports.
func GetReportsHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userId")
		profiles := store.hierarchyProfiles(r)

		recursive, _ := strconv.ParseBool(r.URL.Query().Get("recursive"))
		var reports []hierarchy.Profile
		if recursive {
			reports = hierarchy.AllReports(profiles, userID)
		} else {
			reports = hierarchy.DirectReports(profiles, userID)
		}
		if reports == nil {
			reports = []hierarchy.Profile{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
	}
}

// GetRoleChainHandler handles GET /hierarchy/role-chain/{roleId}.
func GetRoleChainHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roleID := chi.URLParam(r, "roleId")

		roles, err := store.ListActiveRoles(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list roles: %v", err))
			return
		}
		hroles := make([]hierarchy.Role, len(roles))
		for i, role := range roles {
			hroles[i] = role.HierarchyRole()
		}

		chain := hierarchy.RoleChain(hroles, roleID)
		if chain == nil {
			chain = []hierarchy.Role{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"roleChain": chain})
	}
}

// GetOrgChartHandler handles GET /orgchart: the role forest as positioned
// nodes and edges.
func GetOrgChartHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roles, err := store.ListActiveRoles(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list roles: %v", err))
			return
		}

		hroles := make([]hierarchy.Role, len(roles))
		for i, role := range roles {
			hroles[i] = role.HierarchyRole()
		}
		writeJSON(w, http.StatusOK, orgchart.FlowData(hroles))
	}
}
