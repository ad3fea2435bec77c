package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/perch-hq/perch-ui-api/internal/domain/auth"
	apperrors "github.com/perch-hq/perch-ui-api/internal/errors"
	mockauth "github.com/perch-hq/perch-ui-api/internal/mocks/auth"
	"github.com/perch-hq/perch-ui-api/internal/ports"
	"github.com/perch-hq/perch-ui-api/internal/testutil"
)

type authFixture struct {
	svc      *AuthService
	provider *mockauth.FakeIdentityProvider
	cache    *mockauth.MemorySessionCache
	now      time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	provider := mockauth.NewFakeIdentityProvider()
	cache := mockauth.NewMemorySessionCache()
	now := testutil.TestTime()

	svc := NewAuthService(AuthServiceOptions{
		Provider: provider,
		Roles:    mockauth.MetadataRoleMapper{},
		Extras: AuthServiceExtras{
			Cache: cache,
			Now:   testutil.FixedTimeFunc(now),
		},
	})
	return &authFixture{svc: svc, provider: provider, cache: cache, now: now}
}

func (f *authFixture) liveSession() *domainauth.SessionData {
	return &domainauth.SessionData{
		User:      &domainauth.User{ID: "u-1", Role: domainauth.RoleUser},
		Tokens:    domainauth.AuthTokens{AccessToken: "at-1", RefreshToken: "rt-1"},
		ExpiresAt: f.now.Add(time.Hour).Unix(),
	}
}

func (f *authFixture) expiredSession() *domainauth.SessionData {
	sess := f.liveSession()
	sess.ExpiresAt = f.now.Add(-time.Minute).Unix()
	return sess
}

func TestNewAuthService_RequiredDeps(t *testing.T) {
	assert.Panics(t, func() {
		NewAuthService(AuthServiceOptions{Roles: mockauth.MetadataRoleMapper{}})
	})
	assert.Panics(t, func() {
		NewAuthService(AuthServiceOptions{Provider: mockauth.NewFakeIdentityProvider()})
	})
}

func TestValidateSession_NoTokens(t *testing.T) {
	f := newAuthFixture(t)

	res := f.svc.ValidateSession(context.Background(), ValidateInput{})
	assert.Equal(t, SessionStateUnauthenticated, res.State)
	assert.False(t, res.Authenticated())
	// Absence never triggers a provider call.
	assert.Zero(t, f.provider.GetUserCalls)
	assert.Zero(t, f.provider.RefreshCalls)

	// A lone access token is still the logged-out state.
	res = f.svc.ValidateSession(context.Background(), ValidateInput{
		Tokens: domainauth.AuthTokens{AccessToken: "at-1"},
	})
	assert.Equal(t, SessionStateUnauthenticated, res.State)
	assert.Zero(t, f.provider.GetUserCalls)
}

func TestValidateSession_MalformedBlob(t *testing.T) {
	f := newAuthFixture(t)
	tokens := domainauth.AuthTokens{AccessToken: "at-1", RefreshToken: "rt-1"}

	// Parse failure from the cookie layer.
	res := f.svc.ValidateSession(context.Background(), ValidateInput{
		Tokens:     tokens,
		SessionErr: errors.New("invalid character 'x'"),
	})
	assert.Equal(t, SessionStateInvalid, res.State)
	assert.True(t, apperrors.IsMalformedSession(res.Reason))

	// Tokens present but no blob at all: partial state is untrusted.
	res = f.svc.ValidateSession(context.Background(), ValidateInput{Tokens: tokens})
	assert.Equal(t, SessionStateInvalid, res.State)

	// Structural violation inside the blob.
	sess := f.liveSession()
	sess.User = nil
	res = f.svc.ValidateSession(context.Background(), ValidateInput{Tokens: tokens, Session: sess})
	assert.Equal(t, SessionStateInvalid, res.State)
	assert.True(t, apperrors.IsMalformedSession(res.Reason))

	// No partial recovery: the provider is never consulted for broken state.
	assert.Zero(t, f.provider.GetUserCalls)
	assert.Zero(t, f.provider.RefreshCalls)
}

func TestValidateSession_ValidVerifiesWithProvider(t *testing.T) {
	f := newAuthFixture(t)
	sess := f.liveSession()

	res := f.svc.ValidateSession(context.Background(), ValidateInput{
		Tokens:  sess.Tokens,
		Session: sess,
	})
	require.Equal(t, SessionStateValid, res.State)
	require.NotNil(t, res.Session)
	assert.Equal(t, "mock-user-1", res.Session.User.ID)
	assert.Equal(t, domainauth.RoleUser, res.Session.User.Role)
	assert.Equal(t, sess.Tokens, res.Session.Tokens)
	assert.Equal(t, sess.ExpiresAt, res.Session.ExpiresAt)
	assert.Equal(t, 1, f.provider.GetUserCalls)
	assert.Zero(t, f.provider.RefreshCalls)
}

func TestValidateSession_CacheSkipsProvider(t *testing.T) {
	f := newAuthFixture(t)
	sess := f.liveSession()
	in := ValidateInput{Tokens: sess.Tokens, Session: sess}
	ctx := context.Background()

	first := f.svc.ValidateSession(ctx, in)
	require.Equal(t, SessionStateValid, first.State)
	assert.Equal(t, 1, f.provider.GetUserCalls)

	second := f.svc.ValidateSession(ctx, in)
	require.Equal(t, SessionStateValid, second.State)
	assert.Equal(t, second.Session.User.ID, first.Session.User.ID)
	// Served from cache, no extra round-trip.
	assert.Equal(t, 1, f.provider.GetUserCalls)
}

func TestValidateSession_ProviderRejectionIsInvalid(t *testing.T) {
	f := newAuthFixture(t)
	f.provider.GetUserFunc = func(context.Context, string) (*domainauth.User, error) {
		return nil, apperrors.ProviderRejected("JWT expired", nil)
	}
	sess := f.liveSession()

	res := f.svc.ValidateSession(context.Background(), ValidateInput{
		Tokens:  sess.Tokens,
		Session: sess,
	})
	assert.Equal(t, SessionStateInvalid, res.State)
	assert.True(t, apperrors.IsProviderRejected(res.Reason))
}

func TestValidateSession_ExpiredRefreshes(t *testing.T) {
	f := newAuthFixture(t)
	newExpiry := f.now.Add(time.Hour).Unix()
	f.provider.RefreshFunc = func(_ context.Context, refreshToken string) (*ports.ProviderSession, error) {
		assert.Equal(t, "rt-1", refreshToken)
		return &ports.ProviderSession{
			Tokens:    domainauth.AuthTokens{AccessToken: "at-new", RefreshToken: "rt-new"},
			ExpiresAt: newExpiry,
			User:      &domainauth.User{ID: "u-1", AppMetadata: map[string]any{"role": "user"}},
		}, nil
	}
	sess := f.expiredSession()

	res := f.svc.ValidateSession(context.Background(), ValidateInput{
		Tokens:  sess.Tokens,
		Session: sess,
	})
	require.Equal(t, SessionStateRefreshed, res.State)
	assert.True(t, res.Authenticated())
	assert.Equal(t, "at-new", res.Session.Tokens.AccessToken)
	assert.Equal(t, "rt-new", res.Session.Tokens.RefreshToken)
	assert.Greater(t, res.Session.ExpiresAt, sess.ExpiresAt)
	assert.Equal(t, domainauth.RoleUser, res.Session.User.Role)

	// Old cache entry dropped, new one usable.
	_, err := f.cache.Get(context.Background(), "at-1")
	assert.Error(t, err)
	cached, err := f.cache.Get(context.Background(), "at-new")
	require.NoError(t, err)
	assert.Equal(t, "u-1", cached.User.ID)
}

func TestValidateSession_RefreshRejected(t *testing.T) {
	f := newAuthFixture(t)
	f.provider.RefreshFunc = func(context.Context, string) (*ports.ProviderSession, error) {
		return nil, apperrors.ProviderRejected("refresh token revoked", nil)
	}
	sess := f.expiredSession()

	res := f.svc.ValidateSession(context.Background(), ValidateInput{
		Tokens:  sess.Tokens,
		Session: sess,
	})
	assert.Equal(t, SessionStateInvalid, res.State)
	assert.True(t, apperrors.IsProviderRejected(res.Reason))
}

func TestValidateSession_TimeoutIsInvalid(t *testing.T) {
	f := newAuthFixture(t)
	f.provider.GetUserFunc = func(context.Context, string) (*domainauth.User, error) {
		return nil, apperrors.Wrap(context.DeadlineExceeded, apperrors.ErrCodeTimeout, "provider call timed out")
	}
	sess := f.liveSession()

	res := f.svc.ValidateSession(context.Background(), ValidateInput{
		Tokens:  sess.Tokens,
		Session: sess,
	})
	assert.Equal(t, SessionStateInvalid, res.State)
	assert.True(t, apperrors.IsTimeout(res.Reason))
}

func TestValidateSession_RefreshUserFetchedWhenOmitted(t *testing.T) {
	f := newAuthFixture(t)
	f.provider.RefreshFunc = func(context.Context, string) (*ports.ProviderSession, error) {
		return &ports.ProviderSession{
			Tokens:    domainauth.AuthTokens{AccessToken: "at-new", RefreshToken: "rt-new"},
			ExpiresAt: f.now.Add(time.Hour).Unix(),
		}, nil
	}
	sess := f.expiredSession()

	res := f.svc.ValidateSession(context.Background(), ValidateInput{
		Tokens:  sess.Tokens,
		Session: sess,
	})
	require.Equal(t, SessionStateRefreshed, res.State)
	assert.Equal(t, "mock-user-1", res.Session.User.ID)
	assert.Equal(t, 1, f.provider.GetUserCalls)
}

func TestSignIn(t *testing.T) {
	f := newAuthFixture(t)

	sess, err := f.svc.SignIn(context.Background(), "mock.user@example.com", "pw")
	require.NoError(t, err)
	assert.True(t, sess.Tokens.Complete())
	assert.Equal(t, domainauth.RoleUser, sess.User.Role)
	assert.NoError(t, sess.Validate())
	assert.Equal(t, 1, f.cache.Len())
}

func TestSignIn_BadCredentials(t *testing.T) {
	f := newAuthFixture(t)
	f.provider.SignInFunc = func(context.Context, string, string) (*ports.ProviderSession, error) {
		return nil, apperrors.ProviderRejected("invalid login credentials", nil)
	}

	_, err := f.svc.SignIn(context.Background(), "mock.user@example.com", "wrong")
	assert.True(t, apperrors.IsProviderRejected(err))
	assert.Equal(t, 0, f.cache.Len())
}

func TestSignOut(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	sess, err := f.svc.SignIn(ctx, "mock.user@example.com", "pw")
	require.NoError(t, err)
	require.Equal(t, 1, f.cache.Len())

	f.svc.SignOut(ctx, sess.Tokens)
	assert.Equal(t, 1, f.provider.SignOutCalls)
	assert.Equal(t, 0, f.cache.Len())

	// A provider failure still completes the local cleanup path.
	f.provider.SignOutFunc = func(context.Context, string) error { return assert.AnError }
	f.svc.SignOut(ctx, domainauth.AuthTokens{AccessToken: "other", RefreshToken: "r"})
	assert.Equal(t, 2, f.provider.SignOutCalls)

	// No access token: nothing to revoke.
	f.svc.SignOut(ctx, domainauth.AuthTokens{})
	assert.Equal(t, 2, f.provider.SignOutCalls)
}

func TestRefresh_ForcesRotation(t *testing.T) {
	f := newAuthFixture(t)
	sess := f.liveSession()

	// Explicit refresh rotates even a session that has not expired yet.
	result := f.svc.Refresh(context.Background(), sess.Tokens)
	assert.Equal(t, SessionStateRefreshed, result.State)
	require.NotNil(t, result.Session)
	assert.Equal(t, 1, f.provider.RefreshCalls)
	assert.Greater(t, result.Session.ExpiresAt, sess.ExpiresAt)
}

func TestRefresh_IncompleteTokens(t *testing.T) {
	f := newAuthFixture(t)

	result := f.svc.Refresh(context.Background(), domainauth.AuthTokens{AccessToken: "at-1"})
	assert.Equal(t, SessionStateUnauthenticated, result.State)
	assert.Equal(t, 0, f.provider.RefreshCalls)
}

func TestRefresh_Rejected(t *testing.T) {
	f := newAuthFixture(t)
	f.provider.RefreshFunc = func(context.Context, string) (*ports.ProviderSession, error) {
		return nil, apperrors.ProviderRejected("refresh token revoked", errors.New("revoked"))
	}

	result := f.svc.Refresh(context.Background(), f.liveSession().Tokens)
	assert.Equal(t, SessionStateInvalid, result.State)
	assert.True(t, apperrors.IsProviderRejected(result.Reason))
}
