package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		raw  string
		want Role
	}{
		{"admin", RoleAdmin},
		{"ADMIN", RoleAdmin},
		{" user ", RoleUser},
		{"guest", RoleGuest},
		{"", RoleGuest},
		{"superuser", RoleGuest},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseRole(tt.raw), "raw=%q", tt.raw)
	}
}

func TestAuthTokens_Complete(t *testing.T) {
	assert.True(t, AuthTokens{AccessToken: "a", RefreshToken: "r"}.Complete())
	assert.False(t, AuthTokens{AccessToken: "a"}.Complete())
	assert.False(t, AuthTokens{RefreshToken: "r"}.Complete())
	assert.False(t, AuthTokens{}.Complete())
}

func TestSessionData_Validate(t *testing.T) {
	valid := func() *SessionData {
		return &SessionData{
			User:      &User{ID: "u-1", Email: "u@example.com", Role: RoleUser},
			Tokens:    AuthTokens{AccessToken: "at", RefreshToken: "rt"},
			ExpiresAt: time.Now().Add(time.Hour).Unix(),
		}
	}

	assert.NoError(t, valid().Validate())

	s := valid()
	s.User = nil
	assert.ErrorIs(t, s.Validate(), ErrSessionNoUser)

	s = valid()
	s.User.ID = ""
	assert.ErrorIs(t, s.Validate(), ErrSessionNoUser)

	s = valid()
	s.Tokens.AccessToken = ""
	assert.ErrorIs(t, s.Validate(), ErrSessionNoTokens)

	s = valid()
	s.Tokens.RefreshToken = ""
	assert.ErrorIs(t, s.Validate(), ErrSessionNoTokens)

	s = valid()
	s.ExpiresAt = 0
	assert.ErrorIs(t, s.Validate(), ErrSessionBadExpiry)

	var nilSession *SessionData
	assert.ErrorIs(t, nilSession.Validate(), ErrSessionMalformed)
}

func TestSessionData_Expired(t *testing.T) {
	now := time.Now()

	fresh := &SessionData{ExpiresAt: now.Add(time.Hour).Unix()}
	assert.False(t, fresh.Expired(now))

	stale := &SessionData{ExpiresAt: now.Add(-time.Hour).Unix()}
	assert.True(t, stale.Expired(now))

	boundary := &SessionData{ExpiresAt: now.Unix()}
	assert.True(t, boundary.Expired(time.Unix(now.Unix(), 0)))

	var nilSession *SessionData
	assert.True(t, nilSession.Expired(now))
}

func TestUser_IsGuest(t *testing.T) {
	assert.True(t, (&User{ID: "u"}).IsGuest())
	assert.True(t, (&User{ID: "u", Role: RoleGuest}).IsGuest())
	assert.False(t, (&User{ID: "u", Role: RoleUser}).IsGuest())
	var nilUser *User
	assert.True(t, nilUser.IsGuest())
}
