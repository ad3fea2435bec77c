package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"sync"

	domainauth "github.com/perch-hq/perch-ui-api/internal/domain/auth"
	"github.com/perch-hq/perch-ui-api/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityProvider = (*FakeIdentityProvider)(nil)
	_ ports.SessionCache     = (*MemorySessionCache)(nil)
	_ ports.RoleMapper       = (*MetadataRoleMapper)(nil)
)

// FakeIdentityProvider simulates the identity provider for tests. Each method
// delegates to the corresponding func field; unset fields return a sensible
// default built from DefaultUser.
type FakeIdentityProvider struct {
	SignInFunc     func(ctx context.Context, email, password string) (*ports.ProviderSession, error)
	GetUserFunc    func(ctx context.Context, accessToken string) (*domainauth.User, error)
	RefreshFunc    func(ctx context.Context, refreshToken string) (*ports.ProviderSession, error)
	UpdateUserFunc func(ctx context.Context, accessToken string, in ports.UpdateUserInput) (*domainauth.User, error)
	SignOutFunc    func(ctx context.Context, accessToken string) error

	DefaultUser *domainauth.User

	// Call counters for asserting provider traffic.
	mu           sync.Mutex
	SignInCalls  int
	GetUserCalls int
	RefreshCalls int
	SignOutCalls int
}

// NewFakeIdentityProvider creates a FakeIdentityProvider with a default user.
func NewFakeIdentityProvider() *FakeIdentityProvider {
	return &FakeIdentityProvider{
		DefaultUser: &domainauth.User{
			ID:          "mock-user-1",
			Email:       "mock.user@example.com",
			AppMetadata: map[string]any{"role": "user"},
		},
	}
}

func (f *FakeIdentityProvider) count(c *int) {
	f.mu.Lock()
	*c++
	f.mu.Unlock()
}

func (f *FakeIdentityProvider) SignInWithPassword(ctx context.Context, email, password string) (*ports.ProviderSession, error) {
	f.count(&f.SignInCalls)
	if f.SignInFunc != nil {
		return f.SignInFunc(ctx, email, password)
	}
	return f.defaultSession(), nil
}

func (f *FakeIdentityProvider) GetUser(ctx context.Context, accessToken string) (*domainauth.User, error) {
	f.count(&f.GetUserCalls)
	if f.GetUserFunc != nil {
		return f.GetUserFunc(ctx, accessToken)
	}
	u := *f.DefaultUser
	return &u, nil
}

func (f *FakeIdentityProvider) RefreshSession(ctx context.Context, refreshToken string) (*ports.ProviderSession, error) {
	f.count(&f.RefreshCalls)
	if f.RefreshFunc != nil {
		return f.RefreshFunc(ctx, refreshToken)
	}
	return f.defaultSession(), nil
}

func (f *FakeIdentityProvider) UpdateUser(ctx context.Context, accessToken string, in ports.UpdateUserInput) (*domainauth.User, error) {
	if f.UpdateUserFunc != nil {
		return f.UpdateUserFunc(ctx, accessToken, in)
	}
	u := *f.DefaultUser
	return &u, nil
}

func (f *FakeIdentityProvider) SignOut(ctx context.Context, accessToken string) error {
	f.count(&f.SignOutCalls)
	if f.SignOutFunc != nil {
		return f.SignOutFunc(ctx, accessToken)
	}
	return nil
}

func (f *FakeIdentityProvider) defaultSession() *ports.ProviderSession {
	u := *f.DefaultUser
	return &ports.ProviderSession{
		Tokens:    domainauth.AuthTokens{AccessToken: "mock-access", RefreshToken: "mock-refresh"},
		ExpiresAt: 4102444800, // 2100-01-01, far future for tests
		User:      &u,
	}
}

// MemorySessionCache is an in-memory session cache for unit tests.
type MemorySessionCache struct {
	mu       sync.Mutex
	sessions map[string]*domainauth.SessionData
}

// NewMemorySessionCache creates a new in-memory session cache.
func NewMemorySessionCache() *MemorySessionCache {
	return &MemorySessionCache{
		sessions: make(map[string]*domainauth.SessionData),
	}
}

func (m *MemorySessionCache) Get(_ context.Context, accessToken string) (*domainauth.SessionData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[accessToken]
	if !ok {
		return nil, ErrCacheMiss
	}
	return sess, nil
}

func (m *MemorySessionCache) Put(_ context.Context, sess *domainauth.SessionData) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.Tokens.AccessToken] = sess
	return nil
}

func (m *MemorySessionCache) Invalidate(_ context.Context, accessToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, accessToken)
	return nil
}

// Len reports the number of cached sessions.
func (m *MemorySessionCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// ErrCacheMiss is returned by the memory cache when an entry is not present.
type cacheMissError struct{}

func (cacheMissError) Error() string { return "session cache miss" }

var ErrCacheMiss error = cacheMissError{}

// MetadataRoleMapper resolves the role from the conventional app_metadata key.
type MetadataRoleMapper struct{}

func (MetadataRoleMapper) Map(user *domainauth.User) domainauth.Role {
	if user == nil || user.AppMetadata == nil {
		return domainauth.RoleGuest
	}
	raw, _ := user.AppMetadata["role"].(string)
	return domainauth.ParseRole(raw)
}
