//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"errors"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxDisplayNameLen = 120
	maxAvatarURLLen   = 2048
)

// Profile is the dashboard profile row for a provider user.
// UserID is the identity provider's stable user ID; this system never mints
// its own user identifiers.
type Profile struct {
	UserID         string    `json:"user_id"                  db:"user_id"`
	DisplayName    string    `json:"display_name"             db:"display_name"`
	AvatarURL      *string   `json:"avatar_url,omitempty"     db:"avatar_url"`
	MarketingOptIn bool      `json:"marketing_opt_in"         db:"marketing_opt_in"`
	CreatedAt      time.Time `json:"created_at"               db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"               db:"updated_at"`
}

// UpsertProfileRequest carries the writable profile fields.
type UpsertProfileRequest struct {
	UserID         string  `json:"-"`
	DisplayName    string  `json:"display_name"`
	AvatarURL      *string `json:"avatar_url,omitempty"`
	MarketingOptIn bool    `json:"marketing_opt_in"`
}

// Validate checks writable profile fields before they reach the database.
func (r *UpsertProfileRequest) Validate() error {
	if r == nil {
		return errors.New("profile request is required")
	}
	if r.UserID == "" {
		return errors.New("user ID is required")
	}
	name := strings.TrimSpace(r.DisplayName)
	if name == "" {
		return errors.New("display name is required")
	}
	if utf8.RuneCountInString(name) > maxDisplayNameLen {
		return errors.New("display name is too long")
	}
	if r.AvatarURL != nil && *r.AvatarURL != "" {
		if len(*r.AvatarURL) > maxAvatarURLLen {
			return errors.New("avatar URL is too long")
		}
		u, err := url.Parse(*r.AvatarURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errors.New("avatar URL must be a valid http(s) URL")
		}
	}
	return nil
}
