package scorecard

import (
	"time"

	"github.com/orgpulse/scorecard/pkg/hierarchy"
	"github.com/orgpulse/scorecard/pkg/period"
	"github.com/orgpulse/scorecard/pkg/scoring"
)

// Type scopes a scorecard to a person, team, or role.
type Type string

const (
	TypePersonal Type = "personal"
	TypeTeam     Type = "team"
	TypeRole     Type = "role"
)

// Scorecard is the GORM model for a scorecard.
type Scorecard struct {
	ID          string    `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	Name        string    `gorm:"column:name;not null" json:"name"`
	Type        Type      `gorm:"column:type;not null;default:personal" json:"type"`
	OwnerUserID string    `gorm:"column:owner_user_id;index:idx_scorecard_owner;not null" json:"ownerUserId"`
	TeamID      *string   `gorm:"column:team_id;index:idx_scorecard_team" json:"teamId,omitempty"`
	RoleID      *string   `gorm:"column:role_id;index:idx_scorecard_role" json:"roleId,omitempty"`
	IsActive    bool      `gorm:"column:is_active;index:idx_scorecard_active;not null;default:true" json:"isActive"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (Scorecard) TableName() string { return "scorecards" }

// Metric is the GORM model for a tracked metric. The target pointer fields
// follow the scoring mode: exactly the subset the mode requires is non-null
// (enforced by ParseMetricInput on the write path).
type Metric struct {
	ID             string         `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	ScorecardID    string         `gorm:"column:scorecard_id;index:idx_metric_scorecard;not null" json:"scorecardId"`
	Name           string         `gorm:"column:name;not null" json:"name"`
	Description    string         `gorm:"column:description" json:"description,omitempty"`
	Cadence        period.Cadence `gorm:"column:cadence;not null;default:weekly" json:"cadence"`
	ScoringMode    scoring.Mode   `gorm:"column:scoring_mode;not null" json:"scoringMode"`
	TargetValue    *float64       `gorm:"column:target_value" json:"targetValue,omitempty"`
	TargetMin      *float64       `gorm:"column:target_min" json:"targetMin,omitempty"`
	TargetMax      *float64       `gorm:"column:target_max" json:"targetMax,omitempty"`
	TargetBoolean  *bool          `gorm:"column:target_boolean" json:"targetBoolean,omitempty"`
	Unit           string         `gorm:"column:unit" json:"unit,omitempty"`
	OwnerUserID    *string        `gorm:"column:owner_user_id;index:idx_metric_owner" json:"ownerUserId,omitempty"`
	DisplayOrder   int            `gorm:"column:display_order;not null;default:0" json:"displayOrder"`
	IsActive       bool           `gorm:"column:is_active;not null;default:true" json:"isActive"`
	IsArchived     bool           `gorm:"column:is_archived;index:idx_metric_archived;not null;default:false" json:"isArchived"`
	ArchivedReason string         `gorm:"column:archived_reason" json:"archivedReason,omitempty"`
	ArchivedBy     *string        `gorm:"column:archived_by" json:"archivedBy,omitempty"`
	ArchivedAt     *time.Time     `gorm:"column:archived_at" json:"archivedAt,omitempty"`
	CreatedAt      time.Time      `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt      time.Time      `gorm:"column:updated_at" json:"updatedAt"`
}

func (Metric) TableName() string { return "metrics" }

// Target assembles the metric's scoring configuration.
func (m *Metric) Target() scoring.Target {
	return scoring.Target{
		Mode:    m.ScoringMode,
		Value:   m.TargetValue,
		Min:     m.TargetMin,
		Max:     m.TargetMax,
		Boolean: m.TargetBoolean,
	}
}

// MetricEntry is the GORM model for one recorded value. PeriodStart is the
// canonical boundary for the metric's cadence; for yes_no metrics the value
// encodes true as 1 and false as 0. Deduplication per (metric, period) is
// not enforced here; readers order by period_start descending to find the
// latest entry.
type MetricEntry struct {
	ID          string    `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	MetricID    string    `gorm:"column:metric_id;index:idx_entry_metric;not null" json:"metricId"`
	PeriodStart time.Time `gorm:"column:period_start;index:idx_entry_period;not null" json:"periodStart"`
	Value       float64   `gorm:"column:value;not null" json:"value"`
	Note        string    `gorm:"column:note" json:"note,omitempty"`
	CreatedBy   string    `gorm:"column:created_by" json:"createdBy"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"createdAt"`
}

func (MetricEntry) TableName() string { return "metric_entries" }

// Profile is the GORM model for a person.
type Profile struct {
	ID        string  `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	FullName  string  `gorm:"column:full_name;not null" json:"fullName"`
	Email     string  `gorm:"column:email;uniqueIndex:idx_profile_email;not null" json:"email"`
	AvatarURL string  `gorm:"column:avatar_url" json:"avatarUrl,omitempty"`
	ManagerID *string `gorm:"column:manager_id;index:idx_profile_manager" json:"managerId,omitempty"`
	IsActive  bool    `gorm:"column:is_active;not null;default:true" json:"isActive"`
	IsAdmin   bool    `gorm:"column:is_system_admin;not null;default:false" json:"isAdmin"`
}

func (Profile) TableName() string { return "profiles" }

// Team is the GORM model for a team.
type Team struct {
	ID       string `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	Name     string `gorm:"column:name;not null" json:"name"`
	IsActive bool   `gorm:"column:is_active;not null;default:true" json:"isActive"`
}

func (Team) TableName() string { return "teams" }

// TeamMember links a profile to a team.
type TeamMember struct {
	ID     string `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	TeamID string `gorm:"column:team_id;index:idx_team_member_team;not null" json:"teamId"`
	UserID string `gorm:"column:user_id;index:idx_team_member_user;not null" json:"userId"`
}

func (TeamMember) TableName() string { return "team_members" }

// ScorecardMember grants a user membership on a scorecard outside of team
// or ownership relations.
type ScorecardMember struct {
	ID          string `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	ScorecardID string `gorm:"column:scorecard_id;index:idx_sc_member_scorecard;not null" json:"scorecardId"`
	UserID      string `gorm:"column:user_id;index:idx_sc_member_user;not null" json:"userId"`
}

func (ScorecardMember) TableName() string { return "scorecard_members" }

// Role is the GORM model for an organizational role. AccountableToID forms
// a forest; the write path rejects self-references but longer cycles can
// slip in under concurrent updates, so all read-side traversal is
// cycle-guarded.
type Role struct {
	ID              string  `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	Name            string  `gorm:"column:name;not null" json:"name"`
	Description     string  `gorm:"column:description" json:"description,omitempty"`
	AccountableToID *string `gorm:"column:accountable_to_role_id;index:idx_role_parent" json:"accountableToRoleId,omitempty"`
	DisplayOrder    int     `gorm:"column:display_order;not null;default:0" json:"displayOrder"`
	IsActive        bool    `gorm:"column:is_active;not null;default:true" json:"isActive"`
}

func (Role) TableName() string { return "roles" }

// RoleAssignment links a profile to a role.
type RoleAssignment struct {
	ID     string `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	RoleID string `gorm:"column:role_id;index:idx_role_assignment_role;not null" json:"roleId"`
	UserID string `gorm:"column:user_id;index:idx_role_assignment_user;not null" json:"userId"`
}

func (RoleAssignment) TableName() string { return "role_assignments" }

// EmployeeRecord is a roster row imported from an external HR source,
// where the manager is identified only by email.
type EmployeeRecord struct {
	ID           string  `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	UserID       *string `gorm:"column:user_id;index:idx_employee_user" json:"userId,omitempty"`
	FullName     string  `gorm:"column:full_name;not null" json:"fullName"`
	Email        string  `gorm:"column:email;not null" json:"email"`
	ManagerEmail string  `gorm:"column:manager_email" json:"managerEmail,omitempty"`
	IsActive     bool    `gorm:"column:is_active;not null;default:true" json:"isActive"`
}

func (EmployeeRecord) TableName() string { return "employee_records" }

// OwnerIdentity is the resolved display identity for a metric owner.
type OwnerIdentity struct {
	ID        string `json:"id"`
	FullName  string `json:"fullName"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// MetricWithEntries embeds a metric together with its entries, newest
// first, and its resolved owner identity when the owner could be resolved.
type MetricWithEntries struct {
	Metric
	Entries []MetricEntry  `json:"entries"`
	Owner   *OwnerIdentity `json:"owner,omitempty"`
}

// Aggregate is the request-scoped read model for one scorecard. It is
// assembled fresh per load and never cached inside this package.
// ArchivedMetrics starts empty; ArchivedCount is authoritative and full
// hydration happens through Loader.LoadArchivedMetrics on demand.
type Aggregate struct {
	Scorecard       Scorecard           `json:"scorecard"`
	Metrics         []MetricWithEntries `json:"metrics"`
	ArchivedMetrics []MetricWithEntries `json:"archivedMetrics"`
	ArchivedCount   int64               `json:"archivedCount"`
	Employees       []Profile           `json:"employees"`
}

// HierarchyProfile converts a stored profile into the resolver's record
// shape.
func (p Profile) HierarchyProfile() hierarchy.Profile {
	return hierarchy.Profile{
		ID:        p.ID,
		FullName:  p.FullName,
		Email:     p.Email,
		AvatarURL: p.AvatarURL,
		ManagerID: p.ManagerID,
		IsActive:  p.IsActive,
		IsAdmin:   p.IsAdmin,
	}
}

// HierarchyRole converts a stored role into the resolver's record shape.
func (r Role) HierarchyRole() hierarchy.Role {
	return hierarchy.Role{
		ID:              r.ID,
		Name:            r.Name,
		Description:     r.Description,
		AccountableToID: r.AccountableToID,
		DisplayOrder:    r.DisplayOrder,
		IsActive:        r.IsActive,
	}
}
