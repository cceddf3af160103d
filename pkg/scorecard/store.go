package scorecard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orgpulse/scorecard/pkg/period"
)

// ErrScorecardNotFound is returned when the requested scorecard does not
// exist or is inactive. It is the only fatal condition on the read path;
// every other fetch degrades to empty.
var ErrScorecardNotFound = errors.New("scorecard not found")

// ErrMetricNotFound is returned when a metric does not exist.
var ErrMetricNotFound = errors.New("metric not found")

// Store provides database operations for scorecards and their related
// records. All multi-row reads are batched: one query per record set,
// never one query per metric.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates or updates all scorecard tables.
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(
		&Scorecard{},
		&Metric{},
		&MetricEntry{},
		&Profile{},
		&Team{},
		&TeamMember{},
		&ScorecardMember{},
		&Role{},
		&RoleAssignment{},
		&EmployeeRecord{},
	)
}

// GetScorecard fetches an active scorecard by id.
func (s *Store) GetScorecard(ctx context.Context, id string) (*Scorecard, error) {
	var sc Scorecard
	err := s.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&sc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScorecardNotFound
		}
		return nil, fmt.Errorf("get scorecard: %w", err)
	}
	return &sc, nil
}

// ListActiveMetrics returns the active, non-archived metrics of a
// scorecard ordered by display order.
func (s *Store) ListActiveMetrics(ctx context.Context, scorecardID string) ([]Metric, error) {
	var metrics []Metric
	err := s.db.WithContext(ctx).
		Where("scorecard_id = ? AND is_active = ? AND is_archived = ?", scorecardID, true, false).
		Order("display_order").
		Find(&metrics).Error
	if err != nil {
		return nil, fmt.Errorf("list metrics: %w", err)
	}
	return metrics, nil
}

// ListArchivedMetrics returns the archived metrics of a scorecard ordered
// by display order.
func (s *Store) ListArchivedMetrics(ctx context.Context, scorecardID string) ([]Metric, error) {
	var metrics []Metric
	err := s.db.WithContext(ctx).
		Where("scorecard_id = ? AND is_archived = ?", scorecardID, true).
		Order("display_order").
		Find(&metrics).Error
	if err != nil {
		return nil, fmt.Errorf("list archived metrics: %w", err)
	}
	return metrics, nil
}

// CountArchivedMetrics returns how many metrics of a scorecard are
// archived.
func (s *Store) CountArchivedMetrics(ctx context.Context, scorecardID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Metric{}).
		Where("scorecard_id = ? AND is_archived = ?", scorecardID, true).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count archived metrics: %w", err)
	}
	return count, nil
}

// ListEntriesForMetrics returns all entries for the given metrics in a
// single IN query, newest period first. Callers merge them onto their
// owning metric by metric_id.
func (s *Store) ListEntriesForMetrics(ctx context.Context, metricIDs []string) ([]MetricEntry, error) {
	if len(metricIDs) == 0 {
		return nil, nil
	}
	var entries []MetricEntry
	err := s.db.WithContext(ctx).
		Where("metric_id IN ?", metricIDs).
		Order("period_start DESC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// GetProfiles fetches the profiles for a set of user ids in one query.
func (s *Store) GetProfiles(ctx context.Context, userIDs []string) ([]Profile, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var profiles []Profile
	err := s.db.WithContext(ctx).
		Where("id IN ?", userIDs).
		Find(&profiles).Error
	if err != nil {
		return nil, fmt.Errorf("get profiles: %w", err)
	}
	return profiles, nil
}

// ListActiveProfiles returns all active profiles ordered by name.
func (s *Store) ListActiveProfiles(ctx context.Context) ([]Profile, error) {
	var profiles []Profile
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("full_name").
		Find(&profiles).Error
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return profiles, nil
}

// GetProfile fetches one profile by id.
func (s *Store) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	var p Profile
	err := s.db.WithContext(ctx).Where("id = ?", userID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

// ListActiveScorecards returns all active scorecards ordered by name.
func (s *Store) ListActiveScorecards(ctx context.Context) ([]Scorecard, error) {
	var cards []Scorecard
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name").
		Find(&cards).Error
	if err != nil {
		return nil, fmt.Errorf("list scorecards: %w", err)
	}
	return cards, nil
}

// ListScorecardsByRole returns the active scorecards attached to a role.
func (s *Store) ListScorecardsByRole(ctx context.Context, roleID string) ([]Scorecard, error) {
	var cards []Scorecard
	err := s.db.WithContext(ctx).
		Where("role_id = ? AND is_active = ?", roleID, true).
		Find(&cards).Error
	if err != nil {
		return nil, fmt.Errorf("list scorecards by role: %w", err)
	}
	return cards, nil
}

// ListMetricsForScorecards returns active, non-archived metrics across a
// set of scorecards in one query.
func (s *Store) ListMetricsForScorecards(ctx context.Context, scorecardIDs []string) ([]Metric, error) {
	if len(scorecardIDs) == 0 {
		return nil, nil
	}
	var metrics []Metric
	err := s.db.WithContext(ctx).
		Where("scorecard_id IN ? AND is_active = ? AND is_archived = ?", scorecardIDs, true, false).
		Order("scorecard_id, display_order").
		Find(&metrics).Error
	if err != nil {
		return nil, fmt.Errorf("list metrics for scorecards: %w", err)
	}
	return metrics, nil
}

// TeamMemberUserIDs returns the user ids of a team's members.
func (s *Store) TeamMemberUserIDs(ctx context.Context, teamID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&TeamMember{}).
		Where("team_id = ?", teamID).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("team member ids: %w", err)
	}
	return ids, nil
}

// TeamIDsForUser returns the ids of the teams a user belongs to.
func (s *Store) TeamIDsForUser(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&TeamMember{}).
		Where("user_id = ?", userID).
		Pluck("team_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("team ids for user: %w", err)
	}
	return ids, nil
}

// ScorecardMemberUserIDs returns the user ids granted explicit membership
// on a scorecard.
func (s *Store) ScorecardMemberUserIDs(ctx context.Context, scorecardID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&ScorecardMember{}).
		Where("scorecard_id = ?", scorecardID).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("scorecard member ids: %w", err)
	}
	return ids, nil
}

// MemberScorecardIDs returns the ids of scorecards on which a user has
// explicit membership.
func (s *Store) MemberScorecardIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&ScorecardMember{}).
		Where("user_id = ?", userID).
		Pluck("scorecard_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("member scorecard ids: %w", err)
	}
	return ids, nil
}

// OwnedMetricScorecardIDs returns the distinct scorecard ids holding an
// active metric owned by the user.
func (s *Store) OwnedMetricScorecardIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&Metric{}).
		Where("owner_user_id = ? AND is_active = ? AND is_archived = ?", userID, true, false).
		Distinct().
		Pluck("scorecard_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("owned metric scorecard ids: %w", err)
	}
	return ids, nil
}

// DirectReportIDs returns the ids of profiles whose manager is userID.
func (s *Store) DirectReportIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&Profile{}).
		Where("manager_id = ?", userID).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("direct report ids: %w", err)
	}
	return ids, nil
}

// ListActiveRoles returns all active roles ordered by display order.
func (s *Store) ListActiveRoles(ctx context.Context) ([]Role, error) {
	var roles []Role
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("display_order").
		Find(&roles).Error
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

// ListEmployeeRecords returns the active roster rows.
func (s *Store) ListEmployeeRecords(ctx context.Context) ([]EmployeeRecord, error) {
	var records []EmployeeRecord
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("full_name").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list employee records: %w", err)
	}
	return records, nil
}

// LinkEmployeeRecords fills in user_id on imported roster rows whose email
// matches a profile, case-insensitively. Already-linked rows are left
// untouched. Returns the number of rows linked. Satisfies roster.Syncer.
func (s *Store) LinkEmployeeRecords(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Exec(`
		UPDATE employee_records
		SET user_id = (
			SELECT p.id FROM profiles p
			WHERE LOWER(p.email) = LOWER(employee_records.email)
		)
		WHERE user_id IS NULL
		  AND EXISTS (
			SELECT 1 FROM profiles p
			WHERE LOWER(p.email) = LOWER(employee_records.email)
		  )`)
	if res.Error != nil {
		return 0, fmt.Errorf("link employee records: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// CreateEntry records a metric value. The period start is canonicalized to
// the metric's cadence boundary before writing, so callers may pass any
// timestamp inside the intended period.
func (s *Store) CreateEntry(ctx context.Context, metricID string, at time.Time, value float64, note, createdBy string) (*MetricEntry, error) {
	var metric Metric
	if err := s.db.WithContext(ctx).Where("id = ?", metricID).First(&metric).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMetricNotFound
		}
		return nil, fmt.Errorf("get metric: %w", err)
	}

	entry := MetricEntry{
		ID:          uuid.New().String(),
		MetricID:    metricID,
		PeriodStart: period.Start(metric.Cadence, at),
		Value:       value,
		Note:        note,
		CreatedBy:   createdBy,
		CreatedAt:   time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}
	return &entry, nil
}

// ArchiveMetric flags a metric archived and records who did it and why.
// Archiving never deletes entries.
func (s *Store) ArchiveMetric(ctx context.Context, metricID, actor, reason string) error {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&Metric{}).
		Where("id = ? AND is_archived = ?", metricID, false).
		Updates(map[string]any{
			"is_archived":     true,
			"archived_reason": reason,
			"archived_by":     actor,
			"archived_at":     now,
		})
	if res.Error != nil {
		return fmt.Errorf("archive metric: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrMetricNotFound
	}
	return nil
}

// ReorderMetrics rewrites display_order for a scorecard's metrics to match
// orderedIDs. The batch runs inside one transaction: either every row moves
// or none do. IDs that do not belong to the scorecard fail the whole batch.
func (s *Store) ReorderMetrics(ctx context.Context, scorecardID string, orderedIDs []string) error {
	if len(orderedIDs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, id := range orderedIDs {
			res := tx.Model(&Metric{}).
				Where("id = ? AND scorecard_id = ?", id, scorecardID).
				Update("display_order", i)
			if res.Error != nil {
				return fmt.Errorf("reorder metric %s: %w", id, res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("reorder metric %s: %w", id, ErrMetricNotFound)
			}
		}
		return nil
	})
}

// CreateMetric inserts a metric built from a validated configuration at the
// end of the scorecard's display order.
func (s *Store) CreateMetric(ctx context.Context, scorecardID string, cfg *MetricConfig) (*Metric, error) {
	var maxOrder int
	err := s.db.WithContext(ctx).Model(&Metric{}).
		Where("scorecard_id = ?", scorecardID).
		Select("COALESCE(MAX(display_order), -1)").
		Scan(&maxOrder).Error
	if err != nil {
		return nil, fmt.Errorf("max display order: %w", err)
	}

	metric := cfg.NewMetric(scorecardID, maxOrder+1)
	if err := s.db.WithContext(ctx).Create(metric).Error; err != nil {
		return nil, fmt.Errorf("create metric: %w", err)
	}
	return metric, nil
}
