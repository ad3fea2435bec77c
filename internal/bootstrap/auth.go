package bootstrap

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/perch-hq/perch-ui-api/config"
	"github.com/perch-hq/perch-ui-api/internal/adapters/authroles"
	"github.com/perch-hq/perch-ui-api/internal/adapters/mockauth"
	redisadapter "github.com/perch-hq/perch-ui-api/internal/adapters/redis"
	"github.com/perch-hq/perch-ui-api/internal/adapters/supabase"
	"github.com/perch-hq/perch-ui-api/internal/data"
	"github.com/perch-hq/perch-ui-api/internal/ports"
	"github.com/perch-hq/perch-ui-api/internal/service"
)

// AuthDeps contains the inputs for building the auth service.
type AuthDeps struct {
	Auth        config.AuthConfig
	RedisClient redis.UniversalClient // Optional: enables the session cache
	Logger      *slog.Logger
}

// BuildAuthService wires the identity provider, role mapper, and session
// cache into an auth service. Provider construction is eager: a bad provider
// configuration fails startup instead of the first request. The provider is
// returned alongside the service so other services can share the same
// instance; the mock provider keeps session state in memory.
func BuildAuthService(deps AuthDeps) (*service.AuthService, ports.IdentityProvider, error) {
	provider, err := BuildIdentityProvider(deps.Auth)
	if err != nil {
		return nil, nil, err
	}

	roles, err := authroles.NewJMESPathRoleMapper(deps.Auth.RoleExpression)
	if err != nil {
		return nil, nil, fmt.Errorf("build role mapper: %w", err)
	}

	var cache ports.SessionCache
	if deps.RedisClient != nil {
		cache = redisadapter.NewSessionCache(deps.RedisClient, deps.Auth.SessionCacheTTL)
	} else if deps.Logger != nil {
		deps.Logger.Warn("redis not configured; session cache disabled, every request hits the provider")
	}

	svc := service.NewAuthService(service.AuthServiceOptions{
		Provider: provider,
		Roles:    roles,
		Extras: service.AuthServiceExtras{
			Cache:  cache,
			Logger: deps.Logger,
		},
	})
	return svc, provider, nil
}

// BuildIdentityProvider constructs the provider adapter for the configured
// auth mode.
//
//nolint:ireturn // the caller only cares about the port, not the adapter type.
func BuildIdentityProvider(cfg config.AuthConfig) (ports.IdentityProvider, error) {
	switch cfg.Mode {
	case config.AuthModeSupabase:
		provider, err := supabase.NewClient(supabase.Config{
			URL:     cfg.Supabase.URL,
			AnonKey: cfg.Supabase.AnonKey,
			Timeout: cfg.Supabase.RequestTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("build supabase provider: %w", err)
		}
		return provider, nil

	case config.AuthModeMock:
		provider, err := mockauth.NewProvider(mockauth.Config{
			UserID: cfg.DevAuth.UserID,
			Email:  cfg.DevAuth.Email,
			Role:   cfg.DevAuth.Role,
		})
		if err != nil {
			return nil, fmt.Errorf("build mock provider: %w", err)
		}
		return provider, nil

	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Mode)
	}
}

// SettingsDeps contains the inputs for building the settings service.
type SettingsDeps struct {
	DB       *sql.DB
	Provider ports.IdentityProvider
	Logger   *slog.Logger
}

// BuildSettingsService wires the profile and preference repositories with the
// identity provider.
func BuildSettingsService(deps SettingsDeps) *service.SettingsService {
	return service.NewSettingsService(service.SettingsServiceOptions{
		Repos: service.SettingsRepos{
			Profiles:    data.NewProfileRepo(deps.DB, nil),
			Preferences: data.NewPreferenceRepo(deps.DB, nil),
		},
		Provider: deps.Provider,
		Logger:   deps.Logger,
	})
}
