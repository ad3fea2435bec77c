package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/perch-hq/perch-ui-api/internal/domain/auth"
	"github.com/perch-hq/perch-ui-api/internal/domain/routes"
	"github.com/perch-hq/perch-ui-api/internal/observability/statsd"
	"github.com/perch-hq/perch-ui-api/internal/service"
)

// RequestID returns a middleware that assigns every request a UUID and a
// fresh Diagnostics value in the request context. The ID is echoed in the
// X-Request-Id response header for log correlation.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-Id")
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-Id", id)
			ctx := SetDiagnosticsInContext(r.Context(), &Diagnostics{RequestID: id})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			logger.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", RequestIDFromContext(r.Context())),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Metrics returns a middleware that emits request counts and timings to the
// StatsD sink. Paths are not used as tags to keep cardinality bounded.
func Metrics(sink statsd.Sink) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			tags := map[string]string{
				"method": r.Method,
				"status": strconv.Itoa(ww.status),
			}
			sink.Count("http.request", 1, tags)
			sink.Timing("http.request.duration", time.Since(start), tags)
		})
	}
}

// RecoverOptions groups dependencies for the panic boundary.
type RecoverOptions struct {
	Logger  *slog.Logger
	Cookies *CookieStore // Optional: cleared best-effort on panic
	// SignInPath is where browser requests land after a panic. Empty means "/".
	SignInPath string
}

// Recover returns a middleware that catches panics at the boundary. Cookie
// state cannot be trusted after a panic mid-auth, so the auth cookies are
// cleared best-effort; browsers are redirected to sign-in and API clients get
// a 500 body. A panic never propagates to the client as a broken connection.
func Recover(opts RecoverOptions) func(http.Handler) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	signIn := opts.SignInPath
	if signIn == "" {
		signIn = "/"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("request_id", RequestIDFromContext(r.Context())),
						slog.String("stack", string(debug.Stack())))
					if opts.Cookies != nil {
						opts.Cookies.ClearAuthCookies(w, r)
					}
					if isAPIRequest(r) {
						WriteError(w, ErrorParams{
							Code:    http.StatusInternalServerError,
							ErrCode: "internal",
							Err:     errors.New("internal server error"),
						})
						return
					}
					http.Redirect(w, r, signIn, http.StatusSeeOther)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// SessionValidator is the slice of the auth service the gate needs.
type SessionValidator interface {
	ValidateSession(ctx context.Context, in service.ValidateInput) service.ValidationResult
}

// RedirectPaths holds the two redirect targets the gate uses.
type RedirectPaths struct {
	// SignIn receives unauthenticated browser requests to protected paths.
	SignIn string
	// PostAuth receives authenticated users leaving public-only pages and
	// users whose role does not cover the requested path.
	PostAuth string
}

// GateOptions groups dependencies for SessionGate.
type GateOptions struct {
	Auth    SessionValidator
	Routes  *routes.Table
	Cookies *CookieStore
	Paths   RedirectPaths
	Logger  *slog.Logger
	Metrics statsd.Sink      // Optional: emits session validation outcomes
	Now     func() time.Time // Optional: clock override for tests
}

// SessionGate is the one authoritative auth decision per request: read
// cookies, validate the session, classify the route, then redirect or pass
// through with the session attached to the request context.
//
// Public routes never cost a provider round-trip: the session cookie is read
// best-effort for personalization, and neither a refresh nor a redirect can
// happen there. Everything not explicitly public requires a validated
// session; the protected-route table adds role constraints on top.
func SessionGate(opts GateOptions) func(http.Handler) http.Handler {
	if opts.Auth == nil {
		panic("SessionValidator is required")
	}
	if opts.Routes == nil {
		panic("routes.Table is required")
	}
	if opts.Cookies == nil {
		panic("CookieStore is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	g := &sessionGate{opts: opts, logger: logger, now: now}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			g.serve(w, r, next)
		})
	}
}

type sessionGate struct {
	opts   GateOptions
	logger *slog.Logger
	now    func() time.Time
}

func (g *sessionGate) serve(w http.ResponseWriter, r *http.Request, next http.Handler) {
	DiagnosticsFromContext(r.Context()).CountAuthCheck()
	path := r.URL.Path

	if g.opts.Routes.IsPublicOnly(path) {
		// Signed-in visitors have no business on the sign-in page class.
		if g.peekSession(r) != nil {
			http.Redirect(w, r, g.opts.Paths.PostAuth, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
		return
	}

	if g.opts.Routes.IsPublic(path) {
		// Best-effort personalization only. No provider call, no refresh, no
		// redirect, no cookie writes on a public route.
		if sess := g.peekSession(r); sess != nil {
			r = r.WithContext(SetSessionInContext(r.Context(), sess))
		}
		next.ServeHTTP(w, r)
		return
	}

	sess, sessErr := g.opts.Cookies.SessionData(r)
	result := g.opts.Auth.ValidateSession(r.Context(), service.ValidateInput{
		Tokens:     g.opts.Cookies.AuthTokens(r),
		Session:    sess,
		SessionErr: sessErr,
	})
	if g.opts.Metrics != nil {
		g.opts.Metrics.Count("auth.validate", 1, map[string]string{"state": string(result.State)})
	}

	switch result.State {
	case service.SessionStateUnauthenticated:
		// Normal logged-out state: no cookies are written, not even a clear.
		g.deny(w, r, http.StatusUnauthorized)
		return
	case service.SessionStateInvalid:
		g.opts.Cookies.ClearAuthCookies(w, r)
		g.deny(w, r, http.StatusUnauthorized)
		return
	case service.SessionStateRefreshed:
		if err := g.opts.Cookies.SetSession(w, r, result.Session); err != nil {
			g.logger.Error("persisting refreshed session failed", "error", err)
			g.opts.Cookies.ClearAuthCookies(w, r)
			g.deny(w, r, http.StatusUnauthorized)
			return
		}
	case service.SessionStateValid:
		// Pass through unchanged.
	}

	if perm, ok := g.opts.Routes.PermissionFor(path); ok {
		if !perm.Allows(result.Session.User.Role) {
			g.logger.Warn("role check failed",
				"path", path,
				"role", result.Session.User.Role,
				"request_id", RequestIDFromContext(r.Context()))
			g.deny(w, r, http.StatusForbidden)
			return
		}
	}

	next.ServeHTTP(w, r.WithContext(SetSessionInContext(r.Context(), result.Session)))
}

// peekSession reads the session cookie without consulting the provider.
// Only structurally valid, unexpired blobs count; anything else reads as
// signed out. Used exclusively on public routes where a stale blob must not
// trigger a refresh or a redirect.
func (g *sessionGate) peekSession(r *http.Request) *domainauth.SessionData {
	sess, err := g.opts.Cookies.SessionData(r)
	if err != nil || sess.Expired(g.now()) {
		return nil
	}
	return sess
}

// deny terminates the request according to the browser/API split: browsers
// get redirects, API clients get structured JSON.
func (g *sessionGate) deny(w http.ResponseWriter, r *http.Request, status int) {
	if isAPIRequest(r) {
		switch status {
		case http.StatusForbidden:
			WriteError(w, ErrorParams{
				Code:    http.StatusForbidden,
				ErrCode: "forbidden",
				Err:     errors.New("insufficient permissions"),
			})
		default:
			WriteError(w, ErrorParams{
				Code:    http.StatusUnauthorized,
				ErrCode: "unauthenticated",
				Err:     errors.New("authentication required"),
			})
		}
		return
	}

	// Role failures land on the dashboard, never a bare 403 page; the
	// redirect deliberately does not reveal which resource was denied.
	if status == http.StatusForbidden {
		http.Redirect(w, r, g.opts.Paths.PostAuth, http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, signInRedirectURL(g.opts.Paths.SignIn, r), http.StatusSeeOther)
}
