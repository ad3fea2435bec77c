package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"

	domainauth "github.com/perch-hq/perch-ui-api/internal/domain/auth"
	"github.com/perch-hq/perch-ui-api/internal/domain/model"
)

// ProviderSession is what the identity provider returns from sign-in and
// refresh operations: a token pair, its absolute expiry (epoch seconds), and
// the raw user record.
type ProviderSession struct {
	Tokens    domainauth.AuthTokens
	ExpiresAt int64
	User      *domainauth.User
}

// UpdateUserInput groups the mutable provider-side user attributes.
// Zero-value fields are left unchanged.
type UpdateUserInput struct {
	Email        string
	Password     string
	UserMetadata map[string]any
}

// IdentityProvider is the external auth service that issues and validates
// tokens. This system only orchestrates it; the provider owns durable
// identity storage.
type IdentityProvider interface {
	// SignInWithPassword exchanges credentials for a session.
	SignInWithPassword(ctx context.Context, email, password string) (*ProviderSession, error)

	// GetUser validates an access token and returns the user it belongs to.
	GetUser(ctx context.Context, accessToken string) (*domainauth.User, error)

	// RefreshSession exchanges a refresh token for a new session.
	RefreshSession(ctx context.Context, refreshToken string) (*ProviderSession, error)

	// UpdateUser changes provider-side user attributes (password, email).
	UpdateUser(ctx context.Context, accessToken string, in UpdateUserInput) (*domainauth.User, error)

	// SignOut revokes the session behind the access token. Best effort:
	// callers clear cookies regardless of the outcome.
	SignOut(ctx context.Context, accessToken string) error
}

// SessionCache holds recently validated sessions keyed by access token so hot
// paths can skip a provider round-trip. Entries must never outlive the
// session expiry. A miss is reported via ErrCacheMiss from the adapter.
type SessionCache interface {
	Get(ctx context.Context, accessToken string) (*domainauth.SessionData, error)
	Put(ctx context.Context, sess *domainauth.SessionData) error
	Invalidate(ctx context.Context, accessToken string) error
}

// RoleMapper resolves the application role from a provider user record.
type RoleMapper interface {
	Map(user *domainauth.User) domainauth.Role
}

// ProfileRepository persists dashboard profile rows keyed by provider user ID.
type ProfileRepository interface {
	Get(ctx context.Context, userID string) (*model.Profile, error)
	Upsert(ctx context.Context, req *model.UpsertProfileRequest) (*model.Profile, error)
}

// PreferenceRepository persists per-user notification preferences.
type PreferenceRepository interface {
	Get(ctx context.Context, userID string) (*model.NotificationPreferences, error)
	Upsert(ctx context.Context, req *model.UpsertPreferencesRequest) (*model.NotificationPreferences, error)
}
