// Package testutil provides testing utilities and helpers for the perch backend.
package testutil

import (
	"github.com/perch-hq/perch-ui-api/internal/domain/model"
)

// ProfileRequestBuilder provides a fluent interface for building UpsertProfileRequest objects for testing.
type ProfileRequestBuilder struct {
	req *model.UpsertProfileRequest
}

// NewProfileRequest creates a new ProfileRequestBuilder with sensible defaults.
func NewProfileRequest() *ProfileRequestBuilder {
	return &ProfileRequestBuilder{
		req: &model.UpsertProfileRequest{
			UserID:      "00000000-0000-0000-0000-000000000001",
			DisplayName: "Test User",
		},
	}
}

// WithUserID sets the provider user ID.
func (b *ProfileRequestBuilder) WithUserID(userID string) *ProfileRequestBuilder {
	b.req.UserID = userID
	return b
}

// WithDisplayName sets the display name.
func (b *ProfileRequestBuilder) WithDisplayName(name string) *ProfileRequestBuilder {
	b.req.DisplayName = name
	return b
}

// WithAvatarURL sets the avatar URL.
func (b *ProfileRequestBuilder) WithAvatarURL(url string) *ProfileRequestBuilder {
	b.req.AvatarURL = &url
	return b
}

// WithMarketingOptIn sets the marketing opt-in flag.
func (b *ProfileRequestBuilder) WithMarketingOptIn(optIn bool) *ProfileRequestBuilder {
	b.req.MarketingOptIn = optIn
	return b
}

// Build returns the built request.
func (b *ProfileRequestBuilder) Build() *model.UpsertProfileRequest {
	return b.req
}

// PreferencesRequestBuilder builds UpsertPreferencesRequest objects for testing.
type PreferencesRequestBuilder struct {
	req *model.UpsertPreferencesRequest
}

// NewPreferencesRequest creates a new PreferencesRequestBuilder with sensible defaults.
func NewPreferencesRequest() *PreferencesRequestBuilder {
	return &PreferencesRequestBuilder{
		req: &model.UpsertPreferencesRequest{
			UserID:       "00000000-0000-0000-0000-000000000001",
			EmailEnabled: true,
		},
	}
}

// WithUserID sets the provider user ID.
func (b *PreferencesRequestBuilder) WithUserID(userID string) *PreferencesRequestBuilder {
	b.req.UserID = userID
	return b
}

// WithPush sets the push toggle.
func (b *PreferencesRequestBuilder) WithPush(enabled bool) *PreferencesRequestBuilder {
	b.req.PushEnabled = enabled
	return b
}

// WithProductUpdates sets the product updates toggle.
func (b *PreferencesRequestBuilder) WithProductUpdates(enabled bool) *PreferencesRequestBuilder {
	b.req.ProductUpdates = enabled
	return b
}

// Build returns the built request.
func (b *PreferencesRequestBuilder) Build() *model.UpsertPreferencesRequest {
	return b.req
}
