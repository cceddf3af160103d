package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store provides database operations for audit events. Recording is
// fire-and-forget: a failed write is logged and never fails the mutation
// it describes.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewStore creates a new Store. A nil logger falls back to slog.Default().
func NewStore(db *gorm.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// AutoMigrate creates or updates the audit_events table.
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(&Event{})
}

// Record persists one audit event.
func (s *Store) Record(ctx context.Context, actor, action, entityType, entityID, detail string) {
	event := Event{
		ID:         uuid.New().String(),
		Actor:      actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
		CreatedAt:  time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		s.logger.Warn("audit event write failed",
			"action", action, "entityId", entityID, "error", err)
	}
}

// ListFilter narrows List results. Empty fields match everything.
type ListFilter struct {
	Actor      string
	Action     string
	EntityType string
	EntityID   string
}

// List returns events matching the filter, newest first, capped at limit.
func (s *Store) List(ctx context.Context, filter ListFilter, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}

	q := s.db.WithContext(ctx).Model(&Event{})
	if filter.Actor != "" {
		q = q.Where("actor = ?", filter.Actor)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if filter.EntityType != "" {
		q = q.Where("entity_type = ?", filter.EntityType)
	}
	if filter.EntityID != "" {
		q = q.Where("entity_id = ?", filter.EntityID)
	}

	var events []Event
	if err := q.Order("created_at DESC").Limit(limit).Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return events, nil
}
