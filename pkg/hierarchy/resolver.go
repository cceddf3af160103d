// Package hierarchy answers ancestor, descendant, and relation queries over
// the two self-referencing forests in the org model: profiles pointing at
// their manager and roles pointing at the role they are accountable to.
//
// Both forests are rebuilt per request from flat record sets, so the write
// side can only enforce the single-hop "not accountable to itself" check.
// Longer cycles introduced by concurrent writes are tolerated here: every
// traversal carries a visited-id set and truncates silently at a repeat,
// a dangling reference, or a missing record. No traversal returns an error.
package hierarchy

import (
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// Profile is a person record in the reporting forest.
type Profile struct {
	ID        string
	FullName  string
	Email     string
	AvatarURL string
	ManagerID *string
	IsActive  bool
	IsAdmin   bool
}

// Role is a position record in the accountability forest.
type Role struct {
	ID              string
	Name            string
	Description     string
	AccountableToID *string
	DisplayOrder    int
	IsActive        bool
}

// EmployeeRecord is a denormalized roster row where the manager is known
// only by email.
type EmployeeRecord struct {
	ID           string
	UserID       *string
	FullName     string
	Email        string
	ManagerEmail string
	IsActive     bool
}

// ManagerChain walks the manager reference upward from startID, collecting
// each ancestor in root-ward order. The start profile itself is excluded.
// The walk stops at a nil reference, a missing record, or a previously
// visited id.
func ManagerChain(profiles []Profile, startID string) []Profile {
	byID := profileIndex(profiles)

	var chain []Profile
	visited := mapset.NewThreadUnsafeSet(startID)

	current, ok := byID[startID]
	if !ok {
		return chain
	}
	for current.ManagerID != nil {
		next, ok := byID[*current.ManagerID]
		if !ok || !visited.Add(next.ID) {
			break
		}
		chain = append(chain, next)
		current = next
	}
	return chain
}

// RoleChain is ManagerChain for the accountability forest.
func RoleChain(roles []Role, startID string) []Role {
	byID := roleIndex(roles)

	var chain []Role
	visited := mapset.NewThreadUnsafeSet(startID)

	current, ok := byID[startID]
	if !ok {
		return chain
	}
	for current.AccountableToID != nil {
		next, ok := byID[*current.AccountableToID]
		if !ok || !visited.Add(next.ID) {
			break
		}
		chain = append(chain, next)
		current = next
	}
	return chain
}

// DirectReports returns the active profiles whose manager is managerID,
// ordered by full name.
func DirectReports(profiles []Profile, managerID string) []Profile {
	var reports []Profile
	for _, p := range profiles {
		if p.IsActive && p.ManagerID != nil && *p.ManagerID == managerID {
			reports = append(reports, p)
		}
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].FullName < reports[j].FullName
	})
	return reports
}

// ChildRoles returns the active roles accountable to roleID, ordered by
// display order then name.
func ChildRoles(roles []Role, roleID string) []Role {
	var children []Role
	for _, r := range roles {
		if r.IsActive && r.AccountableToID != nil && *r.AccountableToID == roleID {
			children = append(children, r)
		}
	}
	sort.Slice(children, func(i, j int) bool {
		if children[i].DisplayOrder != children[j].DisplayOrder {
			return children[i].DisplayOrder < children[j].DisplayOrder
		}
		return children[i].Name < children[j].Name
	})
	return children
}

// AllReports expands DirectReports depth-first. A global visited set keyed
// by id guarantees each profile is expanded at most once no matter how many
// paths reach it, so a corrupted cycle cannot recurse forever.
func AllReports(profiles []Profile, managerID string) []Profile {
	visited := mapset.NewThreadUnsafeSet(managerID)
	var out []Profile

	var walk func(id string)
	walk = func(id string) {
		for _, report := range DirectReports(profiles, id) {
			if !visited.Add(report.ID) {
				continue
			}
			out = append(out, report)
			walk(report.ID)
		}
	}
	walk(managerID)
	return out
}

// IsManager reports whether the report's direct manager reference equals
// managerID. Single hop only, never transitive.
func IsManager(profiles []Profile, managerID, reportID string) bool {
	for _, p := range profiles {
		if p.ID == reportID {
			return p.ManagerID != nil && *p.ManagerID == managerID
		}
	}
	return false
}

// IsManagerByEmail resolves the manager relation through the roster, where
// manager identity exists only as a denormalized email. The join key is
// compared case-insensitively. reportUserID is matched against the roster
// row's linked user id.
func IsManagerByEmail(roster []EmployeeRecord, managerEmail, reportUserID string) bool {
	if managerEmail == "" {
		return false
	}
	for _, rec := range roster {
		if rec.UserID != nil && *rec.UserID == reportUserID {
			return strings.EqualFold(rec.ManagerEmail, managerEmail)
		}
	}
	return false
}

func profileIndex(profiles []Profile) map[string]Profile {
	byID := make(map[string]Profile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}
	return byID
}

func roleIndex(roles []Role) map[string]Role {
	byID := make(map[string]Role, len(roles))
	for _, r := range roles {
		byID[r.ID] = r
	}
	return byID
}
