package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	domainauth "github.com/perch-hq/perch-ui-api/internal/domain/auth"
	"github.com/perch-hq/perch-ui-api/internal/domain/model"
	apperrors "github.com/perch-hq/perch-ui-api/internal/errors"
	"github.com/perch-hq/perch-ui-api/internal/ports"
)

const minPasswordLen = 8

// SettingsRepos groups the repositories behind the settings pages.
type SettingsRepos struct {
	Profiles    ports.ProfileRepository
	Preferences ports.PreferenceRepository
}

// SettingsServiceOptions groups dependencies for SettingsService.
type SettingsServiceOptions struct {
	Repos    SettingsRepos          // Required
	Provider ports.IdentityProvider // Required: fresh user record and password changes
	Logger   *slog.Logger           // Optional
}

// SettingsService backs the dashboard settings pages: profile, notification
// preferences, and security. Identity attributes (email, password) live with
// the provider; everything else is local rows keyed by the provider user ID.
type SettingsService struct {
	profiles    ports.ProfileRepository
	preferences ports.PreferenceRepository
	provider    ports.IdentityProvider
	logger      *slog.Logger
}

// NewSettingsService constructs a new SettingsService.
func NewSettingsService(opts SettingsServiceOptions) *SettingsService {
	if opts.Repos.Profiles == nil {
		panic("ProfileRepository is required")
	}
	if opts.Repos.Preferences == nil {
		panic("PreferenceRepository is required")
	}
	if opts.Provider == nil {
		panic("IdentityProvider is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &SettingsService{
		profiles:    opts.Repos.Profiles,
		preferences: opts.Repos.Preferences,
		provider:    opts.Provider,
		logger:      logger,
	}
}

// SettingsOverview is everything the settings landing page needs in one call.
type SettingsOverview struct {
	User        *domainauth.User             `json:"user"`
	Profile     *model.Profile               `json:"profile,omitempty"`
	Preferences *model.NotificationPreferences `json:"preferences"`
}

// Overview fetches the provider user record, the profile row, and the
// notification preferences. The three reads are independent and run
// concurrently; a missing profile or preferences row is not an error, only a
// provider failure is.
func (s *SettingsService) Overview(ctx context.Context, sess *domainauth.SessionData) (*SettingsOverview, error) {
	if err := sess.Validate(); err != nil {
		return nil, apperrors.MalformedSession(err)
	}
	userID := sess.User.ID

	var (
		user  *domainauth.User
		prof  *model.Profile
		prefs *model.NotificationPreferences
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := s.provider.GetUser(gctx, sess.Tokens.AccessToken)
		if err != nil {
			return fmt.Errorf("get provider user: %w", err)
		}
		u.Role = sess.User.Role
		user = u
		return nil
	})
	g.Go(func() error {
		p, err := s.profiles.Get(gctx, userID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return nil
			}
			return fmt.Errorf("get profile: %w", err)
		}
		prof = p
		return nil
	})
	g.Go(func() error {
		p, err := s.preferences.Get(gctx, userID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				prefs = model.DefaultNotificationPreferences(userID)
				return nil
			}
			return fmt.Errorf("get preferences: %w", err)
		}
		prefs = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &SettingsOverview{
		User:        user,
		Profile:     prof,
		Preferences: prefs,
	}, nil
}

// UpdateProfile validates and upserts the profile row for the session's user.
func (s *SettingsService) UpdateProfile(ctx context.Context, req *model.UpsertProfileRequest) (*model.Profile, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	profile, err := s.profiles.Upsert(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}

	s.logger.Info("profile updated", "user_id", profile.UserID)
	return profile, nil
}

// UpdatePreferences validates and upserts the notification preferences row.
func (s *SettingsService) UpdatePreferences(ctx context.Context, req *model.UpsertPreferencesRequest) (*model.NotificationPreferences, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	prefs, err := s.preferences.Upsert(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("upsert preferences: %w", err)
	}

	s.logger.Info("preferences updated", "user_id", prefs.UserID)
	return prefs, nil
}

// ChangePassword sets a new password with the provider. The current access
// token authorizes the change; the provider enforces its own policy on top of
// the local minimum-length check.
func (s *SettingsService) ChangePassword(ctx context.Context, sess *domainauth.SessionData, newPassword string) error {
	if err := sess.Validate(); err != nil {
		return apperrors.MalformedSession(err)
	}
	if len(strings.TrimSpace(newPassword)) < minPasswordLen {
		return apperrors.ValidationField("password", fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}

	if _, err := s.provider.UpdateUser(ctx, sess.Tokens.AccessToken, ports.UpdateUserInput{
		Password: newPassword,
	}); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.logger.Info("password changed", "user_id", sess.User.ID)
	return nil
}
