package authroles

// Package authroles resolves application roles from provider user records.

import (
	"fmt"

	jmespath "github.com/jmespath-community/go-jmespath"

	domainauth "github.com/perch-hq/perch-ui-api/internal/domain/auth"
	"github.com/perch-hq/perch-ui-api/internal/ports"
)

// DefaultRoleExpression is where the provider conventionally stores the
// application role. app_metadata is only writable server-side, so it is the
// trusted location; user_metadata is user-writable and never consulted.
const DefaultRoleExpression = "app_metadata.role"

// JMESPathRoleMapper extracts a role from the user record with a configurable
// JMESPath expression. Anything the expression cannot resolve, or resolves to
// a non-string or unknown value, coerces to guest.
type JMESPathRoleMapper struct {
	expression string
}

// NewJMESPathRoleMapper validates the expression once at construction. An
// empty expression falls back to DefaultRoleExpression; a malformed one is a
// configuration error.
func NewJMESPathRoleMapper(expression string) (*JMESPathRoleMapper, error) {
	if expression == "" {
		expression = DefaultRoleExpression
	}
	if _, err := jmespath.Compile(expression); err != nil {
		return nil, fmt.Errorf("compile role expression %q: %w", expression, err)
	}
	return &JMESPathRoleMapper{expression: expression}, nil
}

var _ ports.RoleMapper = (*JMESPathRoleMapper)(nil)

// Map resolves the role for a user. Never fails: a missing or unreadable role
// is the guest role.
func (m *JMESPathRoleMapper) Map(user *domainauth.User) domainauth.Role {
	if user == nil {
		return domainauth.RoleGuest
	}

	doc := map[string]any{
		"id":            user.ID,
		"email":         user.Email,
		"app_metadata":  user.AppMetadata,
		"user_metadata": user.UserMetadata,
	}

	result, err := jmespath.Search(m.expression, doc)
	if err != nil {
		return domainauth.RoleGuest
	}
	raw, ok := result.(string)
	if !ok {
		return domainauth.RoleGuest
	}
	return domainauth.ParseRole(raw)
}
