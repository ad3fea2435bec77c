//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"errors"
	"time"
)

// NotificationPreferences holds the per-user notification toggles shown on
// the settings page. Missing rows read as the defaults below.
type NotificationPreferences struct {
	UserID         string    `json:"user_id"         db:"user_id"`
	EmailEnabled   bool      `json:"email_enabled"   db:"email_enabled"`
	PushEnabled    bool      `json:"push_enabled"    db:"push_enabled"`
	ProductUpdates bool      `json:"product_updates" db:"product_updates"`
	UpdatedAt      time.Time `json:"updated_at"      db:"updated_at"`
}

// DefaultNotificationPreferences returns the defaults applied before a user
// has saved anything: transactional email on, everything else off.
func DefaultNotificationPreferences(userID string) *NotificationPreferences {
	return &NotificationPreferences{
		UserID:       userID,
		EmailEnabled: true,
	}
}

// UpsertPreferencesRequest carries the writable preference fields.
type UpsertPreferencesRequest struct {
	UserID         string `json:"-"`
	EmailEnabled   bool   `json:"email_enabled"`
	PushEnabled    bool   `json:"push_enabled"`
	ProductUpdates bool   `json:"product_updates"`
}

// Validate checks the request before it reaches the database.
func (r *UpsertPreferencesRequest) Validate() error {
	if r == nil {
		return errors.New("preferences request is required")
	}
	if r.UserID == "" {
		return errors.New("user ID is required")
	}
	return nil
}
