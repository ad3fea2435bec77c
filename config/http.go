package config

import (
	"fmt"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// BaseURL is the base URL of the application (e.g., "https://app.example.com").
	BaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`

	// CookieDomain is the domain for auth cookies.
	// Leave empty to use the request domain.
	CookieDomain string `env:"APP_COOKIE_DOMAIN" envDefault:""`

	// SecureCookies forces the Secure attribute on auth cookies. When false,
	// Secure is still applied for TLS/forwarded-HTTPS requests.
	SecureCookies bool `env:"APP_SECURE_COOKIES" envDefault:"false"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.Addr == "" {
		h.Addr = ":8080"
	}
	h.CookieDomain = strings.TrimPrefix(strings.TrimSpace(h.CookieDomain), ".")
}

// Validate rejects cookie domains that browsers would refuse anyway.
// Setting cookies on a public suffix (e.g., "co.uk") silently fails in
// browsers, which is much harder to debug than a startup error.
func (h *HTTPConfig) Validate() error {
	if h.CookieDomain == "" {
		return nil
	}
	suffix, icann := publicsuffix.PublicSuffix(h.CookieDomain)
	if icann && suffix == h.CookieDomain {
		return fmt.Errorf("APP_COOKIE_DOMAIN %q is a public suffix; cookies cannot be scoped to it", h.CookieDomain)
	}
	return nil
}
