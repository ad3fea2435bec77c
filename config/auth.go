package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// AuthMode represents the authentication mode for the application.
type AuthMode string

const (
	// AuthModeSupabase uses the hosted Supabase GoTrue service for authentication.
	AuthModeSupabase AuthMode = "supabase"
	// AuthModeMock uses mock/dev authentication (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "supabase", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: supabase, mock)", v)
	}
}

// SupabaseConfig contains connection settings for the hosted identity provider.
type SupabaseConfig struct {
	// URL is the project base URL (e.g., "https://abc123.supabase.co").
	URL string `env:"URL"`

	// AnonKey is the public API key sent as the "apikey" header on every call.
	AnonKey string `env:"ANON_KEY"`

	// RequestTimeout bounds each provider call. The session validator treats
	// a timeout the same as a rejected token.
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
}

// DevAuthConfig controls mock/dev authentication identity.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	UserID string `env:"USER_ID" envDefault:"dev-user"`
	Email  string `env:"EMAIL"   envDefault:"dev@example.com"`
	Role   string `env:"ROLE"    envDefault:"admin"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which identity provider adapter to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"supabase"`

	// Supabase configuration (used when Mode=supabase).
	Supabase SupabaseConfig `envPrefix:"SUPABASE_"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// RoleExpression is a JMESPath expression evaluated against the provider
	// user record to resolve the application role. Users without a resolvable
	// role are treated as guests.
	RoleExpression string `env:"AUTH_ROLE_EXPRESSION" envDefault:"app_metadata.role"`

	// SignInPath is where unauthenticated browser requests are redirected.
	SignInPath string `env:"AUTH_SIGNIN_PATH" envDefault:"/signin"`

	// PostAuthPath is where authenticated users land after sign-in, and where
	// they are sent when visiting public-only pages or lacking a role.
	PostAuthPath string `env:"AUTH_POST_AUTH_PATH" envDefault:"/dashboard"`

	// PublicRoutes lists paths reachable without authentication. Entries
	// ending in "*" match by prefix. Static assets and health endpoints are
	// always exempt regardless of this list.
	PublicRoutes []string `env:"AUTH_PUBLIC_ROUTES" envSeparator:";" envDefault:"/;/pricing;/about;/blog*;/signin;/signup;/auth/*"`

	// SessionCacheTTL caps how long a validated session may be served from
	// the Redis cache before re-validating with the provider.
	SessionCacheTTL time.Duration `env:"AUTH_SESSION_CACHE_TTL" envDefault:"60s"`
}

// Sanitize applies guardrails to auth configuration values.
func (c *AuthConfig) Sanitize() {
	if c.RequestTimeout() <= 0 {
		c.Supabase.RequestTimeout = 10 * time.Second
	}
	if c.SessionCacheTTL <= 0 {
		c.SessionCacheTTL = time.Minute
	}
	if !strings.HasPrefix(c.SignInPath, "/") {
		c.SignInPath = "/signin"
	}
	if !strings.HasPrefix(c.PostAuthPath, "/") {
		c.PostAuthPath = "/dashboard"
	}
}

// RequestTimeout returns the bounded timeout applied to provider calls.
func (c *AuthConfig) RequestTimeout() time.Duration {
	return c.Supabase.RequestTimeout
}

// Validate checks startup-time invariants. A missing provider URL or key in
// supabase mode is a fatal misconfiguration, not a per-request error.
func (c *AuthConfig) Validate() error {
	if c.Mode != AuthModeSupabase {
		return nil
	}
	if c.Supabase.URL == "" {
		return errors.New("SUPABASE_URL is required when AUTH_MODE=supabase")
	}
	if c.Supabase.AnonKey == "" {
		return errors.New("SUPABASE_ANON_KEY is required when AUTH_MODE=supabase")
	}
	return nil
}
