// Package audit records who changed what on the scorecard mutation paths:
// metric creation, archival, reordering, and entry writes.
package audit

import (
	"time"
)

// Event is the GORM model for one audit event.
type Event struct {
	ID         string    `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	Actor      string    `gorm:"column:actor;index:idx_audit_actor;not null" json:"actor"`
	Action     string    `gorm:"column:action;index:idx_audit_action;not null" json:"action"`
	EntityType string    `gorm:"column:entity_type;not null" json:"entityType"`
	EntityID   string    `gorm:"column:entity_id;index:idx_audit_entity" json:"entityId"`
	Detail     string    `gorm:"column:detail" json:"detail,omitempty"`
	CreatedAt  time.Time `gorm:"column:created_at;index:idx_audit_created" json:"createdAt"`
}

// TableName returns the GORM table name.
func (Event) TableName() string { return "audit_events" }
