package supabase

// Package supabase provides the GoTrue identity-provider adapter.
// The provider is treated as an opaque collaborator: this client only
// orchestrates its REST surface and never stores identity data itself.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/perch-hq/perch-ui-api/internal/domain/auth"
	apperrors "github.com/perch-hq/perch-ui-api/internal/errors"
	"github.com/perch-hq/perch-ui-api/internal/ports"
)

const defaultTimeout = 10 * time.Second

// Client implements ports.IdentityProvider against the GoTrue REST API.
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
}

// Config holds configuration for the GoTrue client.
type Config struct {
	// URL is the project base URL, e.g. "https://abc123.supabase.co".
	URL string
	// AnonKey is the public API key sent as the "apikey" header.
	AnonKey string
	// Timeout bounds every provider call. Defaults to 10s.
	Timeout time.Duration
	// HTTPClient is optional; when set, Timeout is ignored.
	HTTPClient *http.Client
}

// NewClient creates a new GoTrue client. Base URL and key are startup-time
// requirements; their absence is a fatal misconfiguration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("provider URL is required")
	}
	if cfg.AnonKey == "" {
		return nil, errors.New("provider API key is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		anonKey:    cfg.AnonKey,
		httpClient: httpClient,
	}, nil
}

var _ ports.IdentityProvider = (*Client)(nil)

// tokenResponse is the GoTrue token grant response shape.
type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	ExpiresAt    int64        `json:"expires_at"`
	RefreshToken string       `json:"refresh_token"`
	User         *userPayload `json:"user"`
}

// userPayload is the GoTrue user object. Metadata stays opaque; the role
// mapper interprets it.
type userPayload struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
	AppMetadata  map[string]any `json:"app_metadata"`
}

func (u *userPayload) toDomain() *domainauth.User {
	if u == nil {
		return nil
	}
	return &domainauth.User{
		ID:           u.ID,
		Email:        u.Email,
		UserMetadata: u.UserMetadata,
		AppMetadata:  u.AppMetadata,
	}
}

// SignInWithPassword exchanges credentials for a session via the password grant.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*ports.ProviderSession, error) {
	if email == "" || password == "" {
		return nil, apperrors.Validation("email and password are required")
	}

	body := map[string]string{"email": email, "password": password}
	var out tokenResponse
	if err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"password"}},
		body:   body,
	}, &out); err != nil {
		return nil, err
	}

	return sessionFromToken(&out)
}

// RefreshSession exchanges a refresh token for a new session.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*ports.ProviderSession, error) {
	if refreshToken == "" {
		return nil, apperrors.ProviderRejected("refresh token is required", nil)
	}

	body := map[string]string{"refresh_token": refreshToken}
	var out tokenResponse
	if err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"refresh_token"}},
		body:   body,
	}, &out); err != nil {
		return nil, err
	}

	return sessionFromToken(&out)
}

// GetUser validates an access token and returns the user behind it.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*domainauth.User, error) {
	if accessToken == "" {
		return nil, apperrors.ProviderRejected("access token is required", nil)
	}

	var out userPayload
	if err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/auth/v1/user",
		bearer: accessToken,
	}, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, apperrors.ProviderRejected("provider returned no user", nil)
	}
	return out.toDomain(), nil
}

// UpdateUser changes provider-side attributes for the token's user.
func (c *Client) UpdateUser(ctx context.Context, accessToken string, in ports.UpdateUserInput) (*domainauth.User, error) {
	if accessToken == "" {
		return nil, apperrors.ProviderRejected("access token is required", nil)
	}

	body := map[string]any{}
	if in.Email != "" {
		body["email"] = in.Email
	}
	if in.Password != "" {
		body["password"] = in.Password
	}
	if in.UserMetadata != nil {
		body["data"] = in.UserMetadata
	}
	if len(body) == 0 {
		return nil, apperrors.Validation("nothing to update")
	}

	var out userPayload
	if err := c.do(ctx, request{
		method: http.MethodPut,
		path:   "/auth/v1/user",
		bearer: accessToken,
		body:   body,
	}, &out); err != nil {
		return nil, err
	}
	return out.toDomain(), nil
}

// SignOut revokes the session behind the access token. Callers clear cookies
// regardless of the outcome, so a provider failure here is not fatal.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/logout",
		bearer: accessToken,
	}, nil)
}

// sessionFromToken converts a token grant response to a ProviderSession,
// preferring the provider's absolute expiry over the relative one.
func sessionFromToken(tok *tokenResponse) (*ports.ProviderSession, error) {
	if tok.AccessToken == "" || tok.RefreshToken == "" {
		return nil, apperrors.ProviderRejected("provider returned an incomplete token pair", nil)
	}
	expiresAt := tok.ExpiresAt
	if expiresAt <= 0 {
		expiresAt = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second).Unix()
	}
	return &ports.ProviderSession{
		Tokens: domainauth.AuthTokens{
			AccessToken:  tok.AccessToken,
			RefreshToken: tok.RefreshToken,
		},
		ExpiresAt: expiresAt,
		User:      tok.User.toDomain(),
	}, nil
}

// request groups the pieces of a provider call (≤3 params rule).
type request struct {
	method string
	path   string
	query  url.Values
	bearer string
	body   any
}

// do executes a provider request and decodes the response into out (when
// non-nil). Provider refusals become ProviderRejected; transport failures
// and 5xx responses become Internal; context timeouts become Timeout.
func (c *Client) do(ctx context.Context, req request, out any) error {
	endpoint := c.baseURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	var reqBody io.Reader
	if req.body != nil {
		raw, err := json.Marshal(req.body)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode provider request")
		}
		reqBody = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, reqBody)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "build provider request")
	}
	httpReq.Header.Set("apikey", c.anonKey)
	if req.bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.bearer)
	}
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return apperrors.Wrap(err, apperrors.ErrCodeTimeout, "provider call timed out")
		}
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "provider unreachable")
	}
	defer resp.Body.Close() //nolint:errcheck // response body close failure is not actionable

	if resp.StatusCode >= 400 {
		return providerError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "decode provider response")
	}
	return nil
}

// errorPayload covers the error body shapes GoTrue has used across versions.
type errorPayload struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e errorPayload) reason() string {
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

func providerError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload errorPayload
	_ = json.Unmarshal(raw, &payload)

	reason := payload.reason()
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}

	if resp.StatusCode >= 500 {
		return apperrors.Internalf("provider error (%d): %s", resp.StatusCode, reason)
	}
	return apperrors.ProviderRejected(
		fmt.Sprintf("provider rejected request (%d): %s", resp.StatusCode, reason),
		nil,
	)
}
