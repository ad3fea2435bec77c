package httpx

import (
	"log/slog"
	"net/http"

	"github.com/perch-hq/perch-ui-api/internal/domain/routes"
	"github.com/perch-hq/perch-ui-api/internal/observability/statsd"
)

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Auth     AuthSessionService
	Settings SettingsServiceInterface
	Cookies  *CookieStore
	Routes   *routes.Table
	Paths    RedirectPaths
	Logger   *slog.Logger // Optional
	Metrics  statsd.Sink  // Optional
}

// NewRouter builds the HTTP handler: the auth and settings endpoints behind
// the middleware chain. The session gate wraps the whole mux; the route
// table, not the mux layout, decides which paths skip authentication.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	authHandlers := &AuthHandlers{
		Svc:     services.Auth,
		Cookies: services.Cookies,
		Paths:   services.Paths,
		Logger:  services.Logger,
	}
	mux.Handle("POST /auth/signin", http.HandlerFunc(authHandlers.SignIn))
	mux.Handle("POST /auth/signout", http.HandlerFunc(authHandlers.SignOut))
	mux.Handle("GET /auth/session", http.HandlerFunc(authHandlers.Session))
	mux.Handle("POST /auth/refresh", http.HandlerFunc(authHandlers.Refresh))

	if services.Settings != nil {
		settingsHandlers := &SettingsHandlers{Svc: services.Settings}
		mux.Handle("GET /api/settings", http.HandlerFunc(settingsHandlers.Overview))
		mux.Handle("PUT /api/settings/profile", http.HandlerFunc(settingsHandlers.UpdateProfile))
		mux.Handle("PUT /api/settings/notifications", http.HandlerFunc(settingsHandlers.UpdatePreferences))
		mux.Handle("POST /api/settings/password", http.HandlerFunc(settingsHandlers.ChangePassword))
	}

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	gate := SessionGate(GateOptions{
		Auth:    services.Auth,
		Routes:  services.Routes,
		Cookies: services.Cookies,
		Paths:   services.Paths,
		Logger:  services.Logger,
		Metrics: services.Metrics,
	})
	recoverMW := Recover(RecoverOptions{
		Logger:     services.Logger,
		Cookies:    services.Cookies,
		SignInPath: services.Paths.SignIn,
	})

	handler := gate(mux)
	handler = recoverMW(handler)
	if services.Logger != nil {
		handler = Logging(services.Logger)(handler)
	}
	if services.Metrics != nil {
		handler = Metrics(services.Metrics)(handler)
	}
	return RequestID()(handler)
}
