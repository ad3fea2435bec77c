package mockauth

// Package mockauth provides a config-driven identity provider for local
// development and tests. It issues random opaque tokens and keeps sessions in
// memory, so the dashboard can be exercised without a real provider project.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"sync"
	"time"

	domainauth "github.com/perch-hq/perch-ui-api/internal/domain/auth"
	apperrors "github.com/perch-hq/perch-ui-api/internal/errors"
	"github.com/perch-hq/perch-ui-api/internal/ports"
)

// Config controls the mock provider identity. UserID and Email are required.
type Config struct {
	UserID          string
	Email           string
	Role            string
	SessionDuration time.Duration // default 1h when zero
}

// Provider implements ports.IdentityProvider entirely in memory. Any password
// is accepted for the configured email.
type Provider struct {
	cfg Config

	mu       sync.Mutex
	password string
	byAccess map[string]*session
	byRefresh map[string]*session
}

type session struct {
	tokens    domainauth.AuthTokens
	expiresAt time.Time
}

// NewProvider constructs a mock provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.UserID == "" {
		return nil, errors.New("mock auth: UserID is required")
	}
	if cfg.Email == "" {
		return nil, errors.New("mock auth: Email is required")
	}
	if cfg.SessionDuration == 0 {
		cfg.SessionDuration = time.Hour
	}
	return &Provider{
		cfg:       cfg,
		byAccess:  make(map[string]*session),
		byRefresh: make(map[string]*session),
	}, nil
}

var _ ports.IdentityProvider = (*Provider)(nil)

func (p *Provider) user() *domainauth.User {
	return &domainauth.User{
		ID:    p.cfg.UserID,
		Email: p.cfg.Email,
		AppMetadata: map[string]any{
			"role": p.cfg.Role,
		},
	}
}

// SignInWithPassword accepts the configured email with any non-empty password.
func (p *Provider) SignInWithPassword(_ context.Context, email, password string) (*ports.ProviderSession, error) {
	if email != p.cfg.Email || password == "" {
		return nil, apperrors.ProviderRejected("invalid login credentials", nil)
	}
	return p.issue()
}

// GetUser returns the configured identity for any access token this provider
// issued and has not expired.
func (p *Provider) GetUser(_ context.Context, accessToken string) (*domainauth.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	sess, ok := p.byAccess[accessToken]
	if !ok || time.Now().After(sess.expiresAt) {
		return nil, apperrors.ProviderRejected("unknown or expired access token", nil)
	}
	return p.user(), nil
}

// RefreshSession rotates the token pair. The old refresh token is consumed.
func (p *Provider) RefreshSession(_ context.Context, refreshToken string) (*ports.ProviderSession, error) {
	p.mu.Lock()
	old, ok := p.byRefresh[refreshToken]
	if ok {
		delete(p.byRefresh, refreshToken)
		delete(p.byAccess, old.tokens.AccessToken)
	}
	p.mu.Unlock()

	if !ok {
		return nil, apperrors.ProviderRejected("unknown refresh token", nil)
	}
	return p.issue()
}

// UpdateUser records a new password; email and metadata updates are ignored
// since the identity is fixed by config.
func (p *Provider) UpdateUser(_ context.Context, accessToken string, in ports.UpdateUserInput) (*domainauth.User, error) {
	if _, err := p.GetUser(context.Background(), accessToken); err != nil {
		return nil, err
	}
	if in.Password != "" {
		p.mu.Lock()
		p.password = in.Password
		p.mu.Unlock()
	}
	return p.user(), nil
}

// SignOut drops the session behind the access token.
func (p *Provider) SignOut(_ context.Context, accessToken string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if sess, ok := p.byAccess[accessToken]; ok {
		delete(p.byAccess, accessToken)
		delete(p.byRefresh, sess.tokens.RefreshToken)
	}
	return nil
}

func (p *Provider) issue() (*ports.ProviderSession, error) {
	access, err := randomToken(32)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "generate access token")
	}
	refresh, err := randomToken(32)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "generate refresh token")
	}

	sess := &session{
		tokens:    domainauth.AuthTokens{AccessToken: access, RefreshToken: refresh},
		expiresAt: time.Now().Add(p.cfg.SessionDuration),
	}

	p.mu.Lock()
	p.byAccess[access] = sess
	p.byRefresh[refresh] = sess
	p.mu.Unlock()

	return &ports.ProviderSession{
		Tokens:    sess.tokens,
		ExpiresAt: sess.expiresAt.Unix(),
		User:      p.user(),
	}, nil
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
