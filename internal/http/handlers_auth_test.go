package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/perch-hq/perch-ui-api/internal/domain/auth"
	apperrors "github.com/perch-hq/perch-ui-api/internal/errors"
	"github.com/perch-hq/perch-ui-api/internal/ports"
)

// newAuthRouter wires the full middleware chain and auth endpoints around the
// fake provider, the way bootstrap does in production.
func newAuthRouter(env *gateEnv) http.Handler {
	return NewRouter(RouterServices{
		Auth:    env.auth,
		Cookies: env.cookies,
		Routes:  newTestTable(),
		Paths:   testPaths,
		Logger:  discardLogger(),
	})
}

func postJSON(path, body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func TestSignIn_SetsCookiesAndReturnsUser(t *testing.T) {
	env := newGateEnv()
	router := newAuthRouter(env)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, postJSON("/auth/signin", `{"email":"mock.user@example.com","password":"hunter2-long"}`))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cookies := responseCookies(rec)
	require.Contains(t, cookies, CookieAccessToken)
	require.Contains(t, cookies, CookieRefreshToken)
	require.Contains(t, cookies, CookieSession)

	var body struct {
		User struct {
			ID   string `json:"id"`
			Role string `json:"role"`
		} `json:"user"`
		ExpiresAt  int64  `json:"expires_at"`
		RedirectTo string `json:"redirect_to"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "mock-user-1", body.User.ID)
	assert.Equal(t, "user", body.User.Role)
	assert.Equal(t, "/dashboard", body.RedirectTo)
	assert.Positive(t, body.ExpiresAt)
	assert.Equal(t, 1, env.provider.SignInCalls)
}

func TestSignIn_PreservesRequestedRedirect(t *testing.T) {
	env := newGateEnv()
	router := newAuthRouter(env)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, postJSON("/auth/signin?redirect_uri=%2Fsettings", `{"email":"mock.user@example.com","password":"hunter2-long"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redirect_to":"/settings"`)
}

func TestSignIn_RejectsOffsiteRedirect(t *testing.T) {
	env := newGateEnv()
	router := newAuthRouter(env)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, postJSON("/auth/signin?redirect_uri=https%3A%2F%2Fevil.example", `{"email":"mock.user@example.com","password":"hunter2-long"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redirect_to":"/dashboard"`)
}

func TestSignIn_BadCredentials(t *testing.T) {
	env := newGateEnv()
	env.provider.SignInFunc = func(_ context.Context, _, _ string) (*ports.ProviderSession, error) {
		return nil, apperrors.ProviderRejected("invalid login credentials", errors.New("400"))
	}
	router := newAuthRouter(env)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, postJSON("/auth/signin", `{"email":"mock.user@example.com","password":"wrong-password"}`))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_credentials")
	// The provider's reason never reaches the client.
	assert.NotContains(t, rec.Body.String(), "invalid login credentials")
	assert.Empty(t, responseCookies(rec))
}

func TestSignIn_ValidationErrors(t *testing.T) {
	env := newGateEnv()
	router := newAuthRouter(env)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, postJSON("/auth/signin", `{"email":"not-an-email","password":""}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Fields, "email")
	assert.Contains(t, body.Fields, "password")
	assert.Zero(t, env.provider.SignInCalls)
}

func TestSignIn_MalformedBody(t *testing.T) {
	env := newGateEnv()
	router := newAuthRouter(env)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, postJSON("/auth/signin", `{"email": unquoted}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_json")
}

func TestSignOut_ClearsCookiesAndRevokes(t *testing.T) {
	env := newGateEnv()
	router := newAuthRouter(env)

	r := postJSON("/auth/signout", "")
	attachSession(t, r, testSession(testClock.Add(time.Hour)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Equal(t, 1, env.provider.SignOutCalls)
	cookies := responseCookies(rec)
	for _, name := range []string{CookieAccessToken, CookieRefreshToken, CookieSession} {
		require.Contains(t, cookies, name)
		assert.Less(t, cookies[name].MaxAge, 0, name)
	}
}

func TestSignOut_JSONClientsGetPayload(t *testing.T) {
	env := newGateEnv()
	router := newAuthRouter(env)

	r := postJSON("/auth/signout", "")
	r.Header.Set("Accept", "application/json")
	attachSession(t, r, testSession(testClock.Add(time.Hour)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redirect_to":"/"`)
}

func TestSignOut_WithoutCookiesIsANoOp(t *testing.T) {
	env := newGateEnv()
	router := newAuthRouter(env)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, postJSON("/auth/signout", ""))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Zero(t, env.provider.SignOutCalls)
}

func TestSessionEndpoint_SignedOut(t *testing.T) {
	env := newGateEnv()
	router := newAuthRouter(env)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/session", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"authenticated":false`)
}

func TestSessionEndpoint_Authenticated(t *testing.T) {
	env := newGateEnv()
	router := newAuthRouter(env)

	r := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	attachSession(t, r, testSession(testClock.Add(time.Hour)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"authenticated":true`)
	assert.Contains(t, rec.Body.String(), `"mock-user-1"`)
}

func TestSessionEndpoint_InvalidStateClearsCookies(t *testing.T) {
	env := newGateEnv()
	env.provider.GetUserFunc = func(_ context.Context, _ string) (*domainauth.User, error) {
		return nil, apperrors.ProviderRejected("token revoked", errors.New("401"))
	}
	router := newAuthRouter(env)

	r := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	attachSession(t, r, testSession(testClock.Add(time.Hour)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"authenticated":false`)
	cookies := responseCookies(rec)
	assert.Less(t, cookies[CookieSession].MaxAge, 0)
}

func TestRefreshEndpoint_RotatesSession(t *testing.T) {
	env := newGateEnv()
	router := newAuthRouter(env)

	old := testSession(testClock.Add(time.Hour))
	r := postJSON("/auth/refresh", "")
	attachSession(t, r, old)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, env.provider.RefreshCalls)
	cookies := responseCookies(rec)
	require.Contains(t, cookies, CookieSession)
	refreshed := sessionFromCookie(t, cookies[CookieSession])
	assert.Greater(t, refreshed.ExpiresAt, old.ExpiresAt)
}

func TestRefreshEndpoint_WithoutTokens(t *testing.T) {
	env := newGateEnv()
	router := newAuthRouter(env)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, postJSON("/auth/refresh", ""))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, env.provider.RefreshCalls)
}

func TestRefreshEndpoint_RejectedClearsCookies(t *testing.T) {
	env := newGateEnv()
	env.provider.RefreshFunc = func(_ context.Context, _ string) (*ports.ProviderSession, error) {
		return nil, apperrors.ProviderRejected("refresh token revoked", errors.New("401"))
	}
	router := newAuthRouter(env)

	r := postJSON("/auth/refresh", "")
	attachSession(t, r, testSession(testClock.Add(time.Hour)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	cookies := responseCookies(rec)
	assert.Less(t, cookies[CookieSession].MaxAge, 0)
}

// TestSignInFlow_EndToEnd walks the full journey: a protected page redirects,
// the user signs in, and the same page then loads with the session attached.
func TestSignInFlow_EndToEnd(t *testing.T) {
	env := newGateEnv()
	router := newAuthRouter(env)

	// 1. /settings with no cookies redirects to sign-in.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/settings", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Contains(t, rec.Header().Get("Location"), "/signin")

	// 2. Sign in; the provider issues a session expiring in an hour.
	expiry := testClock.Add(time.Hour).Unix()
	env.provider.SignInFunc = func(ctx context.Context, _, _ string) (*ports.ProviderSession, error) {
		u := *env.provider.DefaultUser
		return &ports.ProviderSession{
			Tokens:    testSession(testClock.Add(time.Hour)).Tokens,
			ExpiresAt: expiry,
			User:      &u,
		}, nil
	}
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, postJSON("/auth/signin", `{"email":"mock.user@example.com","password":"hunter2-long"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	issued := rec.Result().Cookies()
	require.NotEmpty(t, issued)

	// 3. Revisit /settings with the issued cookies: pass-through via a probe
	// behind the same gate configuration.
	gated, p := env.gate()
	r := httptest.NewRequest(http.MethodGet, "/settings", nil)
	for _, c := range issued {
		r.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	rec = httptest.NewRecorder()
	gated.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, p.session)
	assert.Equal(t, "mock-user-1", p.session.User.ID)
	assert.Equal(t, expiry, p.session.ExpiresAt)
}
