package auth

// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.

import (
	"errors"
	"strings"
	"time"
)

// Role represents an application's authorization role.
// Keep string form for easy persistence and cookies.
// Valid values are defined as constants below.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	RoleGuest Role = "guest"
)

// ParseRole normalizes a raw role value. Anything unrecognized, including the
// empty string, coerces to guest.
func ParseRole(raw string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleUser:
		return RoleUser
	default:
		return RoleGuest
	}
}

// AuthTokens is the access/refresh token pair issued by the identity
// provider. Tokens are ephemeral and live only in cookies; the provider owns
// durable storage.
type AuthTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Complete reports whether both tokens are present. A missing token is the
// normal "logged out" state, not an error.
func (t AuthTokens) Complete() bool {
	return t.AccessToken != "" && t.RefreshToken != ""
}

// User is the provider's user record plus the derived application role.
// Metadata maps are kept opaque; the role mapper interprets them.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	AppMetadata  map[string]any `json:"app_metadata,omitempty"`
	Role         Role           `json:"role"`
}

// IsGuest reports whether the user has no resolvable role.
func (u *User) IsGuest() bool { return u == nil || u.Role == RoleGuest || u.Role == "" }

// SessionData is the authenticated state serialized into the session cookie.
// ExpiresAt is epoch seconds, matching the provider's token expiry.
type SessionData struct {
	User      *User      `json:"user"`
	Tokens    AuthTokens `json:"tokens"`
	ExpiresAt int64      `json:"expiresAt"`
}

// Validation errors for session blobs. A blob failing any of these is
// untrusted as a whole and must be discarded, never partially recovered.
var (
	ErrSessionNoUser     = errors.New("session data has no user")
	ErrSessionNoTokens   = errors.New("session data is missing one or both tokens")
	ErrSessionBadExpiry  = errors.New("session data has no usable expiry")
	ErrSessionMalformed  = errors.New("session data is malformed")
	ErrSessionNotPresent = errors.New("session data not present")
)

// Validate checks the structural invariants of a session blob: a non-nil
// user, both token strings, and a positive expiry.
func (s *SessionData) Validate() error {
	if s == nil {
		return ErrSessionMalformed
	}
	if s.User == nil || s.User.ID == "" {
		return ErrSessionNoUser
	}
	if !s.Tokens.Complete() {
		return ErrSessionNoTokens
	}
	if s.ExpiresAt <= 0 {
		return ErrSessionBadExpiry
	}
	return nil
}

// Expired reports whether the session's expiry (epoch seconds) is at or
// before the given instant.
func (s *SessionData) Expired(now time.Time) bool {
	return s == nil || !time.Unix(s.ExpiresAt, 0).After(now)
}

// ExpiryTime returns the expiry as a time.Time.
func (s *SessionData) ExpiryTime() time.Time {
	if s == nil {
		return time.Time{}
	}
	return time.Unix(s.ExpiresAt, 0)
}
