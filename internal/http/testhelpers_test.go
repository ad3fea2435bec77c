package httpx

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainauth "github.com/perch-hq/perch-ui-api/internal/domain/auth"
	"github.com/perch-hq/perch-ui-api/internal/domain/routes"
	authmocks "github.com/perch-hq/perch-ui-api/internal/mocks/auth"
	"github.com/perch-hq/perch-ui-api/internal/service"
)

// testClock is a fixed instant all httpx tests agree on.
var testClock = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func testNow() time.Time { return testClock }

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// testPaths are the redirect targets used across httpx tests.
var testPaths = RedirectPaths{SignIn: "/signin", PostAuth: "/dashboard"}

// newTestTable builds the route table the tests run against: a marketing
// site plus a protected dashboard with an admin-only corner.
func newTestTable() *routes.Table {
	return routes.NewTable(
		[]string{"/", "/pricing", "/blog*", "/auth/*"},
		map[string]routes.Permission{
			"/dashboard": {Resource: "dashboard", Action: routes.ActionRead, Roles: []domainauth.Role{domainauth.RoleUser, domainauth.RoleAdmin}},
			"/settings":  {Resource: "settings", Action: routes.ActionWrite, Roles: []domainauth.Role{domainauth.RoleUser, domainauth.RoleAdmin}},
			"/admin":     {Resource: "admin", Action: routes.ActionAdmin, Roles: []domainauth.Role{domainauth.RoleAdmin}},
		},
	).MarkPublicOnly("/signin", "/signup")
}

// gateEnv wires a real AuthService over a fake provider behind the gate.
type gateEnv struct {
	provider *authmocks.FakeIdentityProvider
	cache    *authmocks.MemorySessionCache
	auth     *service.AuthService
	cookies  *CookieStore
}

func newGateEnv() *gateEnv {
	provider := authmocks.NewFakeIdentityProvider()
	cache := authmocks.NewMemorySessionCache()
	auth := service.NewAuthService(service.AuthServiceOptions{
		Provider: provider,
		Roles:    authmocks.MetadataRoleMapper{},
		Extras: service.AuthServiceExtras{
			Cache:  cache,
			Logger: discardLogger(),
			Now:    testNow,
		},
	})
	return &gateEnv{
		provider: provider,
		cache:    cache,
		auth:     auth,
		cookies:  &CookieStore{},
	}
}

// gate builds the middleware around a probe handler that records whether the
// request passed through and what session it carried.
func (e *gateEnv) gate() (http.Handler, *probe) {
	p := &probe{}
	mw := SessionGate(GateOptions{
		Auth:    e.auth,
		Routes:  newTestTable(),
		Cookies: e.cookies,
		Paths:   testPaths,
		Logger:  discardLogger(),
		Now:     testNow,
	})
	return mw(p), p
}

type probe struct {
	called  bool
	session *domainauth.SessionData
}

func (p *probe) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.called = true
	p.session, _ = SessionFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

// testSession builds a structurally valid session expiring at the given time.
func testSession(expiresAt time.Time) *domainauth.SessionData {
	return &domainauth.SessionData{
		User: &domainauth.User{
			ID:          "mock-user-1",
			Email:       "mock.user@example.com",
			AppMetadata: map[string]any{"role": "user"},
			Role:        domainauth.RoleUser,
		},
		Tokens:    domainauth.AuthTokens{AccessToken: "mock-access", RefreshToken: "mock-refresh"},
		ExpiresAt: expiresAt.Unix(),
	}
}

// attachSession puts all three auth cookies on the request.
func attachSession(t *testing.T, r *http.Request, sess *domainauth.SessionData) {
	t.Helper()
	payload, err := json.Marshal(sess)
	require.NoError(t, err)
	r.AddCookie(&http.Cookie{Name: CookieAccessToken, Value: sess.Tokens.AccessToken})
	r.AddCookie(&http.Cookie{Name: CookieRefreshToken, Value: sess.Tokens.RefreshToken})
	r.AddCookie(&http.Cookie{Name: CookieSession, Value: url.QueryEscape(string(payload))})
}

// responseCookies indexes the Set-Cookie headers of a recorded response.
func responseCookies(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := make(map[string]*http.Cookie)
	for _, c := range rec.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

// sessionFromCookie decodes the sb-auth cookie written to a response.
func sessionFromCookie(t *testing.T, c *http.Cookie) *domainauth.SessionData {
	t.Helper()
	raw, err := url.QueryUnescape(c.Value)
	require.NoError(t, err)
	var sess domainauth.SessionData
	require.NoError(t, json.Unmarshal([]byte(raw), &sess))
	return &sess
}
