package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/perch-hq/perch-ui-api/internal/domain/auth"
	"github.com/perch-hq/perch-ui-api/internal/ports"
)

func TestFakeIdentityProvider_Defaults(t *testing.T) {
	provider := NewFakeIdentityProvider()
	ctx := context.Background()

	sess, err := provider.SignInWithPassword(ctx, "mock.user@example.com", "pw")
	require.NoError(t, err)
	assert.True(t, sess.Tokens.Complete())
	assert.Equal(t, "mock-user-1", sess.User.ID)
	assert.Equal(t, 1, provider.SignInCalls)

	user, err := provider.GetUser(ctx, sess.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "mock-user-1", user.ID)
	assert.Equal(t, 1, provider.GetUserCalls)

	// Returned users are copies; mutating one must not leak into the default.
	user.Email = "changed@example.com"
	again, err := provider.GetUser(ctx, "any")
	require.NoError(t, err)
	assert.Equal(t, "mock.user@example.com", again.Email)
}

func TestFakeIdentityProvider_FuncOverrides(t *testing.T) {
	provider := NewFakeIdentityProvider()
	provider.RefreshFunc = func(_ context.Context, refreshToken string) (*ports.ProviderSession, error) {
		assert.Equal(t, "rt-1", refreshToken)
		return nil, assert.AnError
	}

	_, err := provider.RefreshSession(context.Background(), "rt-1")
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, provider.RefreshCalls)
}

func TestMemorySessionCache(t *testing.T) {
	cache := NewMemorySessionCache()
	ctx := context.Background()

	sess := &domainauth.SessionData{
		User:      &domainauth.User{ID: "u-1"},
		Tokens:    domainauth.AuthTokens{AccessToken: "at-1", RefreshToken: "rt-1"},
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	}
	require.NoError(t, cache.Put(ctx, sess))
	assert.Equal(t, 1, cache.Len())

	got, err := cache.Get(ctx, "at-1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.User.ID)

	_, err = cache.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, cache.Invalidate(ctx, "at-1"))
	assert.Equal(t, 0, cache.Len())

	// Structurally invalid sessions are refused.
	bad := &domainauth.SessionData{Tokens: domainauth.AuthTokens{AccessToken: "at-2"}}
	assert.Error(t, cache.Put(ctx, bad))
}

func TestMetadataRoleMapper(t *testing.T) {
	m := MetadataRoleMapper{}

	assert.Equal(t, domainauth.RoleAdmin, m.Map(&domainauth.User{
		AppMetadata: map[string]any{"role": "admin"},
	}))
	assert.Equal(t, domainauth.RoleGuest, m.Map(&domainauth.User{}))
	assert.Equal(t, domainauth.RoleGuest, m.Map(nil))
}
