package httpx

import (
	"context"
	"errors"
	"net/http"

	domainauth "github.com/perch-hq/perch-ui-api/internal/domain/auth"
	"github.com/perch-hq/perch-ui-api/internal/domain/model"
	"github.com/perch-hq/perch-ui-api/internal/service"
)

// SettingsServiceInterface defines the settings operations used by handlers.
type SettingsServiceInterface interface {
	Overview(ctx context.Context, sess *domainauth.SessionData) (*service.SettingsOverview, error)
	UpdateProfile(ctx context.Context, req *model.UpsertProfileRequest) (*model.Profile, error)
	UpdatePreferences(ctx context.Context, req *model.UpsertPreferencesRequest) (*model.NotificationPreferences, error)
	ChangePassword(ctx context.Context, sess *domainauth.SessionData, newPassword string) error
}

// SettingsHandlers provides the JSON settings API behind the session gate.
// Every handler assumes the gate already attached a session to the context;
// a missing session here means the route was wired outside the gate.
type SettingsHandlers struct {
	Svc SettingsServiceInterface
}

// Overview returns the settings landing payload.
// GET /api/settings.
func (h *SettingsHandlers) Overview(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		writeMissingSession(w)
		return
	}

	overview, err := h.Svc.Overview(r.Context(), sess)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, overview)
}

// UpdateProfile upserts the caller's profile row. The user ID always comes
// from the session, never from the request body.
// PUT /api/settings/profile.
func (h *SettingsHandlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		writeMissingSession(w)
		return
	}

	var req model.UpsertProfileRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	req.UserID = sess.User.ID

	profile, err := h.Svc.UpdateProfile(r.Context(), &req)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, profile)
}

// UpdatePreferences upserts the caller's notification preferences.
// PUT /api/settings/notifications.
func (h *SettingsHandlers) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		writeMissingSession(w)
		return
	}

	var req model.UpsertPreferencesRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	req.UserID = sess.User.ID

	prefs, err := h.Svc.UpdatePreferences(r.Context(), &req)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, prefs)
}

// changePasswordRequest is the POST /api/settings/password body.
type changePasswordRequest struct {
	Password string `json:"password"`
}

// ChangePassword sets a new password with the identity provider.
// POST /api/settings/password.
func (h *SettingsHandlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		writeMissingSession(w)
		return
	}

	var req changePasswordRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if err := h.Svc.ChangePassword(r.Context(), sess, req.Password); err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func writeMissingSession(w http.ResponseWriter) {
	WriteError(w, ErrorParams{
		Code:    http.StatusUnauthorized,
		ErrCode: "unauthenticated",
		Err:     errors.New("authentication required"),
	})
}
