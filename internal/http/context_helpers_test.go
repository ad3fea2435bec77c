package httpx

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/perch-hq/perch-ui-api/internal/domain/auth"
)

func TestSessionContextRoundTrip(t *testing.T) {
	sess := testSession(testClock.Add(time.Hour))
	ctx := SetSessionInContext(context.Background(), sess)

	got, ok := SessionFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, sess, got)
	assert.Equal(t, sess.User, UserFromContext(ctx))
	assert.False(t, IsGuestUser(ctx))
}

func TestSessionContext_NilSessionIsNoOp(t *testing.T) {
	ctx := SetSessionInContext(context.Background(), nil)
	_, ok := SessionFromContext(ctx)
	assert.False(t, ok)
	assert.Nil(t, UserFromContext(ctx))
	assert.True(t, IsGuestUser(ctx))
}

func TestIsGuestUser_GuestRole(t *testing.T) {
	sess := testSession(testClock.Add(time.Hour))
	sess.User.Role = domainauth.RoleGuest
	ctx := SetSessionInContext(context.Background(), sess)
	assert.True(t, IsGuestUser(ctx))
}

func TestDiagnostics(t *testing.T) {
	d := &Diagnostics{RequestID: "req-1"}
	ctx := SetDiagnosticsInContext(context.Background(), d)

	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	DiagnosticsFromContext(ctx).CountAuthCheck()
	DiagnosticsFromContext(ctx).CountAuthCheck()
	assert.EqualValues(t, 2, d.AuthChecks())
}

func TestDiagnostics_NilSafe(t *testing.T) {
	var d *Diagnostics
	d.CountAuthCheck()
	assert.Zero(t, d.AuthChecks())
	assert.Empty(t, RequestIDFromContext(context.Background()))
}
