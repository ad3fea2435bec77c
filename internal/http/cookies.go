package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/perch-hq/perch-ui-api/internal/domain/auth"
)

// Auth cookie names. Fixed for compatibility with the hosted provider's
// client libraries, which look for the sb-* names.
const (
	CookieAccessToken  = "sb-access-token"
	CookieRefreshToken = "sb-refresh-token"
	CookieSession      = "sb-auth"
)

// cookieMaxAge is the lifetime of all three auth cookies: seven days.
// The session inside expires much sooner; the cookie lifetime only bounds how
// long a refresh token may sit unused in a browser.
const cookieMaxAge = 7 * 24 * 60 * 60

// CookieStore reads and writes the three auth cookies with consistent
// attributes. Handlers and middleware never touch http.SetCookie directly for
// auth state; everything goes through this type.
type CookieStore struct {
	// Domain scopes the cookies; empty means the request host.
	Domain string
	// Secure forces the Secure attribute. When false it is still applied for
	// TLS and forwarded-HTTPS requests.
	Secure bool
}

// AuthTokens reads the token pair from the request cookies. Missing cookies
// yield empty fields; absence is the normal logged-out state, not an error.
func (c *CookieStore) AuthTokens(r *http.Request) domainauth.AuthTokens {
	return domainauth.AuthTokens{
		AccessToken:  cookieValue(r, CookieAccessToken),
		RefreshToken: cookieValue(r, CookieRefreshToken),
	}
}

// SessionData reads and validates the session cookie. The three failure modes
// stay distinguishable for logging:
//
//	absent cookie    -> domainauth.ErrSessionNotPresent
//	undecodable JSON -> wrapped parse error
//	structural fail  -> the SessionData.Validate error
//
// On any error the returned session is nil; a partially populated blob is
// never handed to callers.
func (c *CookieStore) SessionData(r *http.Request) (*domainauth.SessionData, error) {
	cookie, err := r.Cookie(CookieSession)
	if err != nil {
		return nil, domainauth.ErrSessionNotPresent
	}

	raw, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return nil, fmt.Errorf("decode session cookie: %w", err)
	}

	var sess domainauth.SessionData
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, fmt.Errorf("parse session cookie: %w", err)
	}
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	return &sess, nil
}

// SetAuthTokens writes the token pair cookies.
func (c *CookieStore) SetAuthTokens(w http.ResponseWriter, r *http.Request, tokens domainauth.AuthTokens) {
	c.set(w, r, CookieAccessToken, tokens.AccessToken)
	c.set(w, r, CookieRefreshToken, tokens.RefreshToken)
}

// SetSessionData validates and writes the session cookie. An invalid session
// is refused rather than persisted; the cookie layer never stores state the
// validator would immediately reject.
func (c *CookieStore) SetSessionData(w http.ResponseWriter, r *http.Request, sess *domainauth.SessionData) error {
	if err := sess.Validate(); err != nil {
		return fmt.Errorf("refusing to store invalid session: %w", err)
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session cookie: %w", err)
	}
	c.set(w, r, CookieSession, url.QueryEscape(string(payload)))
	return nil
}

// SetSession writes all three cookies from one session in a single call.
func (c *CookieStore) SetSession(w http.ResponseWriter, r *http.Request, sess *domainauth.SessionData) error {
	if err := c.SetSessionData(w, r, sess); err != nil {
		return err
	}
	c.SetAuthTokens(w, r, sess.Tokens)
	return nil
}

// ClearAuthCookies expires all three auth cookies. Best effort: it never
// fails, and it is safe to call on requests that carried no cookies at all.
// Every auth failure path ends here.
func (c *CookieStore) ClearAuthCookies(w http.ResponseWriter, r *http.Request) {
	for _, name := range []string{CookieAccessToken, CookieRefreshToken, CookieSession} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   c.Domain,
			HttpOnly: true,
			Secure:   c.secure(r),
			MaxAge:   -1,
			Expires:  time.Unix(0, 0).UTC(),
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func (c *CookieStore) set(w http.ResponseWriter, r *http.Request, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   c.secure(r),
		MaxAge:   cookieMaxAge,
		SameSite: http.SameSiteLaxMode,
	})
}

// secure reports whether cookies for this request should carry the Secure
// attribute: forced by config, or the request arrived over (forwarded) TLS.
func (c *CookieStore) secure(r *http.Request) bool {
	if c.Secure {
		return true
	}
	if r == nil {
		return false
	}
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func cookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
