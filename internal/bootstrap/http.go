package bootstrap

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/perch-hq/perch-ui-api/config"
	domainauth "github.com/perch-hq/perch-ui-api/internal/domain/auth"
	"github.com/perch-hq/perch-ui-api/internal/domain/routes"
	httpx "github.com/perch-hq/perch-ui-api/internal/http"
	"github.com/perch-hq/perch-ui-api/internal/observability/statsd"
	"github.com/perch-hq/perch-ui-api/internal/service"
)

// BuildMetricsSink constructs the StatsD client from config. A disabled
// config yields nil so callers can skip the metrics middleware entirely.
func BuildMetricsSink(cfg config.StatsdConfig, logger *slog.Logger) (*statsd.Client, error) {
	if !cfg.Enabled || cfg.Address == "" {
		return nil, nil
	}
	return statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.Address,
		Prefix:  cfg.Prefix,
		Logger:  logger,
	})
}

// BuildRouteTable assembles the static route table from the configured
// public routes plus the fixed protected-area permissions. The sign-in and
// sign-up pages are public-only: authenticated users are redirected away.
func BuildRouteTable(cfg config.AuthConfig) *routes.Table {
	members := []domainauth.Role{domainauth.RoleUser, domainauth.RoleAdmin}
	admins := []domainauth.Role{domainauth.RoleAdmin}

	protected := map[string]routes.Permission{
		"/dashboard":    {Resource: "dashboard", Action: routes.ActionRead, Roles: members},
		"/settings":     {Resource: "settings", Action: routes.ActionWrite, Roles: members},
		"/api/settings": {Resource: "settings", Action: routes.ActionWrite, Roles: members},
		"/admin":        {Resource: "admin", Action: routes.ActionAdmin, Roles: admins},
	}

	return routes.NewTable(cfg.PublicRoutes, protected).
		MarkPublicOnly(cfg.SignInPath, "/signup")
}

// HTTPServerDeps contains everything needed to stand up the HTTP server.
type HTTPServerDeps struct {
	Config   *config.AppConfig
	Auth     *service.AuthService
	Settings *service.SettingsService
	Logger   *slog.Logger
	Metrics  statsd.Sink // Optional
}

// StartHTTPServer creates and starts the HTTP server.
// Returns the server instance for graceful shutdown.
func StartHTTPServer(deps *HTTPServerDeps) *http.Server {
	if deps == nil {
		return nil
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := deps.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	handler := httpx.NewRouter(httpx.RouterServices{
		Auth:     deps.Auth,
		Settings: deps.Settings,
		Cookies: &httpx.CookieStore{
			Domain: appCfg.HTTP.CookieDomain,
			Secure: appCfg.HTTP.SecureCookies || !appCfg.IsDev,
		},
		Routes: BuildRouteTable(appCfg.Auth),
		Paths: httpx.RedirectPaths{
			SignIn:   appCfg.Auth.SignInPath,
			PostAuth: appCfg.Auth.PostAuthPath,
		},
		Logger:  logger,
		Metrics: deps.Metrics,
	})

	return startServer(logger, handler, appCfg.HTTP.Addr)
}

func startServer(logger *slog.Logger, handler http.Handler, addr string) *http.Server {
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
		}
	}()

	return server
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(ctx context.Context, server *http.Server, logger *slog.Logger) error {
	if server == nil {
		return nil
	}

	if logger != nil {
		logger.Info("shutting down HTTP server")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if logger != nil {
		logger.Info("HTTP server stopped")
	}

	return nil
}
