package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	domainauth "github.com/perch-hq/perch-ui-api/internal/domain/auth"
	apperrors "github.com/perch-hq/perch-ui-api/internal/errors"
	"github.com/perch-hq/perch-ui-api/internal/http/validation"
	"github.com/perch-hq/perch-ui-api/internal/service"
)

// maxPasswordLen guards against absurd payloads; the provider enforces the
// real password policy.
const maxPasswordLen = 256

// AuthSessionService defines the auth service operations the handlers use.
type AuthSessionService interface {
	SessionValidator
	SignIn(ctx context.Context, email, password string) (*domainauth.SessionData, error)
	SignOut(ctx context.Context, tokens domainauth.AuthTokens)
	Refresh(ctx context.Context, tokens domainauth.AuthTokens) service.ValidationResult
}

// AuthHandlers provides HTTP handlers for the authentication surface.
type AuthHandlers struct {
	Svc     AuthSessionService
	Cookies *CookieStore
	Paths   RedirectPaths
	Logger  *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// signInRequest is the POST /auth/signin body.
type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignIn handles the password-grant sign-in endpoint.
// POST /auth/signin.
func (h *AuthHandlers) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if errs := validation.New().
		Validate("email", req.Email, validation.Email("Email")).
		Validate("password", req.Password, validation.Required("Password", maxPasswordLen)).
		Errors(); len(errs) > 0 {
		WriteJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation",
			"fields": errs,
		})
		return
	}

	sess, err := h.Svc.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		// Credential failures are indistinguishable on purpose; the provider's
		// exact reason is logged, not returned.
		if apperrors.IsProviderRejected(err) {
			h.logger().InfoContext(r.Context(), "sign-in rejected", "error", err)
			WriteError(w, ErrorParams{
				Code:    http.StatusUnauthorized,
				ErrCode: "invalid_credentials",
				Err:     errors.New("invalid email or password"),
			})
			return
		}
		WriteAppError(w, err)
		return
	}

	if err := h.Cookies.SetSession(w, r, sess); err != nil {
		h.logger().ErrorContext(r.Context(), "persisting session failed", "error", err)
		WriteAppError(w, apperrors.Internal("failed to establish session"))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"user":        sess.User,
		"expires_at":  sess.ExpiresAt,
		"redirect_to": postSignInTarget(r, h.Paths.PostAuth),
	})
}

// SignOut handles the sign-out endpoint. The provider call is best effort;
// cookies are always cleared.
// POST /auth/signout.
func (h *AuthHandlers) SignOut(w http.ResponseWriter, r *http.Request) {
	h.Svc.SignOut(r.Context(), h.Cookies.AuthTokens(r))
	h.Cookies.ClearAuthCookies(w, r)

	if isAPIRequest(r) {
		WriteJSON(w, http.StatusOK, map[string]string{
			"status":      "success",
			"redirect_to": "/",
		})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Session reports the current authentication status for UI personalization.
// A refresh performed during validation is persisted; an invalid session
// clears cookies and reads as signed out rather than an error.
// GET /auth/session.
func (h *AuthHandlers) Session(w http.ResponseWriter, r *http.Request) {
	sess, sessErr := h.Cookies.SessionData(r)
	result := h.Svc.ValidateSession(r.Context(), service.ValidateInput{
		Tokens:     h.Cookies.AuthTokens(r),
		Session:    sess,
		SessionErr: sessErr,
	})

	switch result.State {
	case service.SessionStateInvalid:
		h.Cookies.ClearAuthCookies(w, r)
		fallthrough
	case service.SessionStateUnauthenticated:
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	case service.SessionStateRefreshed:
		if err := h.Cookies.SetSession(w, r, result.Session); err != nil {
			h.logger().ErrorContext(r.Context(), "persisting refreshed session failed", "error", err)
			h.Cookies.ClearAuthCookies(w, r)
			WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
			return
		}
	case service.SessionStateValid:
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user": map[string]any{
			"id":    result.Session.User.ID,
			"email": result.Session.User.Email,
			"role":  result.Session.User.Role,
		},
		"expires_at": result.Session.ExpiresAt,
	})
}

// Refresh forces a token refresh regardless of expiry.
// POST /auth/refresh.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	result := h.Svc.Refresh(r.Context(), h.Cookies.AuthTokens(r))
	switch result.State {
	case service.SessionStateUnauthenticated:
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "unauthenticated",
			Err:     errors.New("no session to refresh"),
		})
		return
	case service.SessionStateInvalid:
		h.Cookies.ClearAuthCookies(w, r)
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "provider_rejected",
			Err:     errors.New("session could not be refreshed"),
		})
		return
	case service.SessionStateRefreshed, service.SessionStateValid:
	}

	if err := h.Cookies.SetSession(w, r, result.Session); err != nil {
		h.logger().ErrorContext(r.Context(), "persisting refreshed session failed", "error", err)
		h.Cookies.ClearAuthCookies(w, r)
		WriteAppError(w, apperrors.Internal("failed to persist session"))
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"expires_at": result.Session.ExpiresAt,
	})
}

// postSignInTarget resolves where the client should navigate after sign-in:
// a validated redirect_uri from the query, else the configured landing path.
func postSignInTarget(r *http.Request, postAuth string) string {
	candidate := r.URL.Query().Get("redirect_uri")
	if candidate == "" {
		return postAuth
	}
	if safe := safeRedirectPath(candidate); safe != "/" {
		return safe
	}
	return postAuth
}
