package routes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/perch-hq/perch-ui-api/internal/domain/auth"
)

func testTable() *Table {
	protected := map[string]Permission{
		"/dashboard": {Resource: "dashboard", Action: ActionRead, Roles: []domainauth.Role{domainauth.RoleUser, domainauth.RoleAdmin}},
		"/settings":  {Resource: "settings", Action: ActionWrite, Roles: []domainauth.Role{domainauth.RoleUser, domainauth.RoleAdmin}},
		"/admin":     {Resource: "admin", Action: ActionAdmin, Roles: []domainauth.Role{domainauth.RoleAdmin}},
	}
	t := NewTable([]string{"/", "/pricing", "/blog*", "/auth/*"}, protected)
	return t.MarkPublicOnly("/signin", "/signup")
}

func TestTable_IsPublic(t *testing.T) {
	tbl := testTable()

	assert.True(t, tbl.IsPublic("/"))
	assert.True(t, tbl.IsPublic("/pricing"))
	assert.True(t, tbl.IsPublic("/pricing/")) // trailing slash normalized
	assert.True(t, tbl.IsPublic("/blog"))
	assert.True(t, tbl.IsPublic("/blog/2026/launch"))
	assert.True(t, tbl.IsPublic("/auth/callback"))
	assert.True(t, tbl.IsPublic("/signin"), "public-only routes are public")

	assert.False(t, tbl.IsPublic("/dashboard"))
	assert.False(t, tbl.IsPublic("/settings/profile"))
	assert.False(t, tbl.IsPublic("/pricingplans"), "exact entries do not prefix-match")
}

func TestTable_ExemptNamespaces(t *testing.T) {
	tbl := NewTable(nil, nil)
	assert.True(t, tbl.IsPublic("/static/app.css"))
	assert.True(t, tbl.IsPublic("/healthz"))
	assert.False(t, tbl.IsPublic("/dashboard"))
}

func TestTable_IsPublicOnly(t *testing.T) {
	tbl := testTable()
	assert.True(t, tbl.IsPublicOnly("/signin"))
	assert.True(t, tbl.IsPublicOnly("/signup"))
	assert.False(t, tbl.IsPublicOnly("/pricing"))
	assert.False(t, tbl.IsPublicOnly("/dashboard"))
}

func TestTable_PermissionFor(t *testing.T) {
	tbl := testTable()

	perm, ok := tbl.PermissionFor("/admin")
	require.True(t, ok)
	assert.Equal(t, "admin", perm.Resource)

	// Subpaths fall back to the nearest configured parent.
	perm, ok = tbl.PermissionFor("/settings/profile")
	require.True(t, ok)
	assert.Equal(t, "settings", perm.Resource)

	// The most specific entry wins over a parent entry.
	deep := NewTable(nil, map[string]Permission{
		"/settings":          {Resource: "settings", Roles: []domainauth.Role{domainauth.RoleUser}},
		"/settings/security": {Resource: "security", Roles: []domainauth.Role{domainauth.RoleAdmin}},
	})
	perm, ok = deep.PermissionFor("/settings/security")
	require.True(t, ok)
	assert.Equal(t, "security", perm.Resource)
	perm, ok = deep.PermissionFor("/settings/security/keys")
	require.True(t, ok)
	assert.Equal(t, "security", perm.Resource)

	_, ok = tbl.PermissionFor("/unknown")
	assert.False(t, ok)
}

func TestPermission_Allows(t *testing.T) {
	adminOnly := Permission{Roles: []domainauth.Role{domainauth.RoleAdmin}}

	assert.True(t, adminOnly.Allows(domainauth.RoleAdmin))
	assert.False(t, adminOnly.Allows(domainauth.RoleUser))
	assert.False(t, adminOnly.Allows(domainauth.RoleGuest))
	assert.False(t, adminOnly.Allows(""), "missing role coerces to guest")
}
