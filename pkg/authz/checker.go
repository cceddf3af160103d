// Package authz gates the administrative surfaces. Authentication lives at
// the gateway; by the time a request lands here its identity is already in
// the X-User-Id header, and the only question left is whether that user is
// a system admin.
package authz

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Checker decides whether a user holds the system admin flag.
type Checker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// ProfileChecker answers admin checks from the profiles table.
type ProfileChecker struct {
	db *gorm.DB
}

// NewProfileChecker creates a ProfileChecker.
func NewProfileChecker(db *gorm.DB) *ProfileChecker {
	return &ProfileChecker{db: db}
}

// IsAdmin reports whether the profile exists, is active, and carries the
// system admin flag. An unknown user is simply not an admin.
func (c *ProfileChecker) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	var count int64
	err := c.db.WithContext(ctx).
		Table("profiles").
		Where("id = ? AND is_active = ? AND is_system_admin = ?", userID, true, true).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("admin check: %w", err)
	}
	return count > 0, nil
}

// AllowAll is a Checker that admits everyone, for development setups
// without seeded admin profiles.
type AllowAll struct{}

func (AllowAll) IsAdmin(context.Context, string) (bool, error) { return true, nil }
