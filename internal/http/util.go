package httpx

import (
	"net/http"
	"net/url"
	"strings"
)

// safeRedirectPath ensures the provided redirect is a same-origin relative
// path starting with "/" and not an absolute URL. Returns "/" when invalid.
// Every redirect target that originates from request input goes through here.
func safeRedirectPath(candidate string) string {
	if candidate == "" {
		return "/"
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return "/"
	}
	// Reject scheme-relative references like //evil.example.
	if strings.HasPrefix(candidate, "//") {
		return "/"
	}
	return candidate
}

// signInRedirectURL builds the sign-in URL preserving the originally
// requested path so the user lands back where they were headed.
func signInRedirectURL(signInPath string, r *http.Request) string {
	original := safeRedirectPath(r.URL.RequestURI())
	if original == "/" || original == signInPath {
		return signInPath
	}
	u := url.URL{Path: signInPath}
	q := url.Values{}
	q.Set("redirect_uri", original)
	u.RawQuery = q.Encode()
	return u.String()
}

// isAPIRequest reports whether a request expects a structured JSON error
// instead of a redirect: anything under /api/, or a client that asks for JSON
// without accepting HTML.
func isAPIRequest(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	accept := r.Header.Get("Accept")
	if strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html") {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest")
}
