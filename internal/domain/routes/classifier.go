package routes

// Package routes classifies request paths against static route tables.
// It is pure: no I/O, no request types, just path and role logic.

import (
	"strings"

	domainauth "github.com/perch-hq/perch-ui-api/internal/domain/auth"
)

// Action describes what a route permission allows.
type Action string

const (
	ActionRead  Action = "read"
	ActionWrite Action = "write"
	ActionAdmin Action = "admin"
)

// Permission is the access policy configured for a protected path.
type Permission struct {
	Resource string
	Action   Action
	Roles    []domainauth.Role
}

// Allows reports whether the given role is in the permission's role set.
// A user with no resolvable role is coerced to guest first, and guest is
// never present in an admin-only set.
func (p Permission) Allows(role domainauth.Role) bool {
	if role == "" {
		role = domainauth.RoleGuest
	}
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// exemptPrefixes are namespaces that never require authentication, regardless
// of the configured public routes: static assets and health probes.
var exemptPrefixes = []string{"/static/", "/healthz"}

// Table holds the static route configuration evaluated on every request.
// It is built once at startup and never mutated afterwards.
type Table struct {
	// public entries; a trailing "*" marks a prefix match.
	exact    map[string]struct{}
	prefixes []string

	// publicOnly paths (sign-in page class) redirect authenticated users away.
	publicOnly map[string]struct{}

	// protected maps exact paths to their permission. Longest configured
	// path segment-wise wins; there is no permission inheritance.
	protected map[string]Permission
}

// NewTable builds a route table from the configured public routes and the
// protected-route permissions.
func NewTable(publicRoutes []string, protected map[string]Permission) *Table {
	t := &Table{
		exact:      make(map[string]struct{}),
		publicOnly: make(map[string]struct{}),
		protected:  make(map[string]Permission, len(protected)),
	}
	for _, route := range publicRoutes {
		route = strings.TrimSpace(route)
		if route == "" {
			continue
		}
		if strings.HasSuffix(route, "*") {
			prefix := strings.TrimSuffix(route, "*")
			if prefix != "" {
				t.prefixes = append(t.prefixes, prefix)
			}
			continue
		}
		t.exact[route] = struct{}{}
	}
	for path, perm := range protected {
		t.protected[normalize(path)] = perm
	}
	return t
}

// MarkPublicOnly flags paths that authenticated users should be redirected
// away from (e.g., the sign-in page). A public-only path is implicitly public.
func (t *Table) MarkPublicOnly(paths ...string) *Table {
	for _, p := range paths {
		p = normalize(p)
		t.publicOnly[p] = struct{}{}
		t.exact[p] = struct{}{}
	}
	return t
}

// IsPublic reports whether the path is reachable without authentication:
// an exact public entry, a wildcard prefix entry, or an always-exempt
// namespace. The public check short-circuits all protected lookups, so a
// route can never be simultaneously public and protected.
func (t *Table) IsPublic(path string) bool {
	path = normalize(path)
	for _, p := range exemptPrefixes {
		if path == strings.TrimSuffix(p, "/") || strings.HasPrefix(path, p) {
			return true
		}
	}
	if _, ok := t.exact[path]; ok {
		return true
	}
	for _, prefix := range t.prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// IsPublicOnly reports whether the path is for unauthenticated visitors only.
func (t *Table) IsPublicOnly(path string) bool {
	_, ok := t.publicOnly[normalize(path)]
	return ok
}

// PermissionFor returns the access policy for a protected path. The most
// specific configured path wins: the exact path is tried first, then parent
// segments are walked toward the root. Permissions do not inherit across
// unrelated prefixes; a parent entry only applies when no deeper one exists.
func (t *Table) PermissionFor(path string) (Permission, bool) {
	path = normalize(path)
	for {
		if perm, ok := t.protected[path]; ok {
			return perm, true
		}
		idx := strings.LastIndex(path, "/")
		if idx <= 0 {
			return Permission{}, false
		}
		path = path[:idx]
	}
}

// IsProtected reports whether any permission applies to the path.
func (t *Table) IsProtected(path string) bool {
	_, ok := t.PermissionFor(path)
	return ok
}

func normalize(path string) string {
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}
