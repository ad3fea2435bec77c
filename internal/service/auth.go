package service

import (
	"context"
	"log/slog"
	"time"

	domainauth "github.com/perch-hq/perch-ui-api/internal/domain/auth"
	apperrors "github.com/perch-hq/perch-ui-api/internal/errors"
	"github.com/perch-hq/perch-ui-api/internal/ports"
)

// AuthServiceExtras groups the optional AuthService dependencies.
type AuthServiceExtras struct {
	Cache  ports.SessionCache // Optional: skips a provider round-trip on hot paths
	Logger *slog.Logger       // Optional: structured logger
	Now    func() time.Time   // Optional: clock override for tests
}

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Provider ports.IdentityProvider // Required
	Roles    ports.RoleMapper       // Required
	Extras   AuthServiceExtras
}

// AuthService decides whether a request is authenticated, refreshing the
// session transparently when the access token has expired. Auth failures are
// result states, not errors: only the middleware boundary turns them into
// redirects or 401 bodies.
type AuthService struct {
	provider ports.IdentityProvider
	roles    ports.RoleMapper
	cache    ports.SessionCache
	logger   *slog.Logger
	now      func() time.Time
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	if opts.Provider == nil {
		panic("IdentityProvider is required")
	}
	if opts.Roles == nil {
		panic("RoleMapper is required")
	}

	logger := opts.Extras.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Extras.Now
	if now == nil {
		now = time.Now
	}

	return &AuthService{
		provider: opts.Provider,
		roles:    opts.Roles,
		cache:    opts.Extras.Cache,
		logger:   logger,
		now:      now,
	}
}

// SessionState is the outcome of validating a request's cookie state.
type SessionState string

const (
	// SessionStateUnauthenticated means no token cookies were present. This is
	// the normal logged-out state, never an error, and no provider call is made.
	SessionStateUnauthenticated SessionState = "unauthenticated"
	// SessionStateValid means the session was verified with the provider (or
	// served from cache) without any cookie change.
	SessionStateValid SessionState = "valid"
	// SessionStateRefreshed means the expired session was renewed; the caller
	// must persist the new session back to cookies.
	SessionStateRefreshed SessionState = "refreshed"
	// SessionStateInvalid means the cookie state cannot be trusted; the caller
	// must clear all auth cookies.
	SessionStateInvalid SessionState = "invalid"
)

// ValidateInput is the cookie state read for the current request. SessionErr
// carries a parse or structural failure from reading the session cookie;
// Session is nil in that case.
type ValidateInput struct {
	Tokens     domainauth.AuthTokens
	Session    *domainauth.SessionData
	SessionErr error
}

// ValidationResult is the terminal output of the session state machine.
// Session is populated for Valid and Refreshed, nil otherwise. Reason carries
// the cause for Invalid and is for logging only.
type ValidationResult struct {
	State   SessionState
	Session *domainauth.SessionData
	Reason  error
}

// Authenticated reports whether the result carries a usable session.
func (r ValidationResult) Authenticated() bool {
	return r.State == SessionStateValid || r.State == SessionStateRefreshed
}

// ValidateSession runs the per-request session state machine:
//
//	no tokens            -> Unauthenticated
//	malformed session    -> Invalid (no partial recovery)
//	not expired          -> verify with provider -> Valid | Invalid
//	expired              -> refresh with provider -> Refreshed | Invalid
//
// Provider timeouts and rejections both resolve to Invalid. The method itself
// never returns an error; everything is encoded in the result state.
func (s *AuthService) ValidateSession(ctx context.Context, in ValidateInput) ValidationResult {
	if !in.Tokens.Complete() {
		return ValidationResult{State: SessionStateUnauthenticated}
	}

	// Tokens present but the session blob is absent or failed validation:
	// partial state is untrusted as a whole.
	if in.SessionErr != nil {
		return s.invalid(apperrors.MalformedSession(in.SessionErr))
	}
	if err := in.Session.Validate(); err != nil {
		return s.invalid(apperrors.MalformedSession(err))
	}

	if in.Session.Expired(s.now()) {
		return s.refresh(ctx, in.Tokens)
	}
	return s.verify(ctx, in.Tokens, in.Session.ExpiresAt)
}

// verify establishes the session with the provider for a non-expired token,
// consulting the cache first.
func (s *AuthService) verify(ctx context.Context, tokens domainauth.AuthTokens, expiresAt int64) ValidationResult {
	if cached := s.cacheGet(ctx, tokens.AccessToken); cached != nil {
		return ValidationResult{State: SessionStateValid, Session: cached}
	}

	user, err := s.provider.GetUser(ctx, tokens.AccessToken)
	if err != nil {
		return s.invalid(err)
	}

	sess := s.buildSession(user, tokens, expiresAt)
	s.cachePut(ctx, sess)
	return ValidationResult{State: SessionStateValid, Session: sess}
}

// refresh exchanges the refresh token for a new session. The old cache entry
// is dropped regardless of outcome.
func (s *AuthService) refresh(ctx context.Context, tokens domainauth.AuthTokens) ValidationResult {
	s.cacheInvalidate(ctx, tokens.AccessToken)

	ps, err := s.provider.RefreshSession(ctx, tokens.RefreshToken)
	if err != nil {
		return s.invalid(err)
	}

	sess, err := s.sessionFromProvider(ctx, ps)
	if err != nil {
		return s.invalid(err)
	}

	s.cachePut(ctx, sess)
	return ValidationResult{State: SessionStateRefreshed, Session: sess}
}

// Refresh forces a token refresh regardless of expiry, for the explicit
// refresh endpoint. The outcome is the same state machine tail as an expired
// session: Refreshed with a new session, or Invalid.
func (s *AuthService) Refresh(ctx context.Context, tokens domainauth.AuthTokens) ValidationResult {
	if !tokens.Complete() {
		return ValidationResult{State: SessionStateUnauthenticated}
	}
	return s.refresh(ctx, tokens)
}

// SignIn exchanges credentials for a new session. The caller persists it to
// cookies. Provider rejections surface as ProviderRejected errors.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*domainauth.SessionData, error) {
	ps, err := s.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessionFromProvider(ctx, ps)
	if err != nil {
		return nil, err
	}

	s.cachePut(ctx, sess)
	s.logger.Info("user signed in", "user_id", sess.User.ID, "role", sess.User.Role)
	return sess, nil
}

// SignOut revokes the session with the provider and drops the cache entry.
// Best effort: failures are logged and the caller clears cookies regardless.
func (s *AuthService) SignOut(ctx context.Context, tokens domainauth.AuthTokens) {
	if tokens.AccessToken == "" {
		return
	}
	if err := s.provider.SignOut(ctx, tokens.AccessToken); err != nil {
		s.logger.Warn("provider sign-out failed", "error", err)
	}
	s.cacheInvalidate(ctx, tokens.AccessToken)
}

// sessionFromProvider converts a provider session to SessionData, fetching the
// user when the provider response omits it, and resolving the role.
func (s *AuthService) sessionFromProvider(ctx context.Context, ps *ports.ProviderSession) (*domainauth.SessionData, error) {
	user := ps.User
	if user == nil {
		fetched, err := s.provider.GetUser(ctx, ps.Tokens.AccessToken)
		if err != nil {
			return nil, err
		}
		user = fetched
	}
	return s.buildSession(user, ps.Tokens, ps.ExpiresAt), nil
}

func (s *AuthService) buildSession(user *domainauth.User, tokens domainauth.AuthTokens, expiresAt int64) *domainauth.SessionData {
	user.Role = s.roles.Map(user)
	return &domainauth.SessionData{
		User:      user,
		Tokens:    tokens,
		ExpiresAt: expiresAt,
	}
}

func (s *AuthService) invalid(reason error) ValidationResult {
	s.logger.Warn("session invalid", "reason", reason)
	return ValidationResult{State: SessionStateInvalid, Reason: reason}
}

// Cache helpers. All best effort: a cache failure never changes the outcome.

func (s *AuthService) cacheGet(ctx context.Context, accessToken string) *domainauth.SessionData {
	if s.cache == nil {
		return nil
	}
	sess, err := s.cache.Get(ctx, accessToken)
	if err != nil {
		return nil
	}
	return sess
}

func (s *AuthService) cachePut(ctx context.Context, sess *domainauth.SessionData) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Put(ctx, sess); err != nil {
		s.logger.Debug("session cache put failed", "error", err)
	}
}

func (s *AuthService) cacheInvalidate(ctx context.Context, accessToken string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, accessToken); err != nil {
		s.logger.Debug("session cache invalidate failed", "error", err)
	}
}
