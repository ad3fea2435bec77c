package httpx

import (
	"context"
	"sync/atomic"

	domainauth "github.com/perch-hq/perch-ui-api/internal/domain/auth"
)

// sessionKey is an unexported context key type to avoid collisions across
// packages. Centralized here so all handlers and middleware use the same key.
type sessionKey struct{}

type diagnosticsKey struct{}

// SetSessionInContext returns a child context carrying the given session.
// If session is nil, the original ctx is returned unchanged.
func SetSessionInContext(ctx context.Context, sess *domainauth.SessionData) context.Context {
	if sess == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, sess)
}

// SessionFromContext returns the session from context and whether one is set.
func SessionFromContext(ctx context.Context) (*domainauth.SessionData, bool) {
	if sess, ok := ctx.Value(sessionKey{}).(*domainauth.SessionData); ok && sess != nil {
		return sess, true
	}
	return nil, false
}

// UserFromContext returns the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *domainauth.User {
	if sess, ok := SessionFromContext(ctx); ok {
		return sess.User
	}
	return nil
}

// IsGuestUser reports whether the request context is unauthenticated or a
// guest session.
func IsGuestUser(ctx context.Context) bool {
	sess, ok := SessionFromContext(ctx)
	if !ok {
		return true
	}
	return sess.User.IsGuest()
}

// Diagnostics carries per-request observability state. It lives only in the
// request context; there is no process-wide counterpart, so concurrent
// requests never interfere with each other's counts.
type Diagnostics struct {
	RequestID  string
	authChecks atomic.Int32
}

// CountAuthCheck records one pass through the session gate.
func (d *Diagnostics) CountAuthCheck() {
	if d != nil {
		d.authChecks.Add(1)
	}
}

// AuthChecks returns how many times this request passed the session gate.
func (d *Diagnostics) AuthChecks() int32 {
	if d == nil {
		return 0
	}
	return d.authChecks.Load()
}

// SetDiagnosticsInContext returns a child context carrying the diagnostics.
func SetDiagnosticsInContext(ctx context.Context, d *Diagnostics) context.Context {
	if d == nil {
		return ctx
	}
	return context.WithValue(ctx, diagnosticsKey{}, d)
}

// DiagnosticsFromContext returns the request diagnostics, or nil when the
// request ID middleware is not installed.
func DiagnosticsFromContext(ctx context.Context) *Diagnostics {
	if d, ok := ctx.Value(diagnosticsKey{}).(*Diagnostics); ok {
		return d
	}
	return nil
}

// RequestIDFromContext returns the request ID, or "" when none was assigned.
func RequestIDFromContext(ctx context.Context) string {
	if d := DiagnosticsFromContext(ctx); d != nil {
		return d.RequestID
	}
	return ""
}
