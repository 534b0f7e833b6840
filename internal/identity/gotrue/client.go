// Copyright (c) 2026 FarmMarket. All rights reserved.
// Author: dev@farmmarket.az

/*
Package gotrue implements the [identity.Provider] contract against a
GoTrue-compatible REST API (the auth component of the hosted backend).

# Architecture

  - Transport: plain HTTP JSON calls (signup, password grant, logout, user).
  - State: the client caches the current session in memory and, optionally,
    in Redis so the resting state survives a process restart.
  - Notifications: every session change is fanned out through an in-process
    hub, mirroring the hosted SDK's onAuthStateChange behavior.

Provider error messages are preserved verbatim: the auth form controller
matches on the provider's exact phrasing to choose user-facing text.
*/
package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/farmmarket/api/internal/identity"
	"github.com/farmmarket/api/internal/platform/apperr"
	"github.com/farmmarket/api/internal/platform/constants"
)

// # Contracts & Types

// SessionCache persists the current session snapshot between process runs.
type SessionCache interface {
	// Save stores the snapshot with a TTL derived from the session expiry.
	Save(context context.Context, session *identity.Session) error

	// Load returns the stored snapshot, or nil when none exists.
	Load(context context.Context) (*identity.Session, error)

	// Clear removes the stored snapshot.
	Clear(context context.Context) error
}

// Client talks to a GoTrue-compatible identity endpoint.
//
// It implements [identity.Provider]. All session mutations funnel through
// setSession, which is the only emitter on the notification hub.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cache      SessionCache
	events     *hub
	logger     *slog.Logger

	mu      sync.Mutex
	current *identity.Session
}

// NewClient constructs a provider client.
//
// # Parameters
//   - baseURL: Root of the identity API (e.g. https://id.farmmarket.az/auth/v1).
//   - apiKey: The project's public API key, sent on every request.
//   - cache: Optional session snapshot cache (nil disables persistence).
//   - logger: Structured logger for provider-level events.
func NewClient(baseURL, apiKey string, cache SessionCache, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: constants.ProviderRequestTimeout,
		},
		cache:  cache,
		events: newHub(),
		logger: logger,
	}
}

// # Wire Payloads

// grantResponse is the shape of a successful /signup or /token response.
// GoTrue returns a bare user when email confirmation is pending, and a full
// token grant when a session was established immediately.
type grantResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	TokenType    string         `json:"token_type"`
	ExpiresIn    int64          `json:"expires_in"`
	User         *identity.User `json:"user"`

	// Bare-user fields, populated when no session was issued.
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Metadata map[string]any `json:"user_metadata"`
}

// errorResponse covers the error payload variants GoTrue deployments emit.
type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

// message returns the most specific populated error text.
func (e *errorResponse) message() string {
	switch {
	case e.ErrorDescription != "":
		return e.ErrorDescription
	case e.Msg != "":
		return e.Msg
	case e.Message != "":
		return e.Message
	case e.Error != "":
		return e.Error
	}
	return ""
}

// # Provider Operations

/*
SignUp requests account creation with auxiliary metadata and a redirect target.

Description: POSTs /signup. When the deployment auto-confirms accounts the
response carries a full session, which is applied and announced on the hub;
otherwise only the created user is returned and the session arrives later.

Parameters:
  - context: context.Context
  - input: identity.SignUpInput

Returns:
  - *identity.User: The created account
  - error: Provider errors, message verbatim
*/
func (client *Client) SignUp(context context.Context, input identity.SignUpInput) (*identity.User, error) {
	endpoint := client.baseURL + "/signup"
	if input.RedirectTo != "" {
		endpoint += "?redirect_to=" + url.QueryEscape(input.RedirectTo)
	}

	body := map[string]any{
		"email":    input.Email,
		"password": input.Password,
	}
	if len(input.Data) > 0 {
		body["data"] = input.Data
	}

	var grant grantResponse
	if err := client.post(context, endpoint, body, "", &grant); err != nil {
		return nil, err
	}

	// Auto-confirm deployments answer with a session straight away.
	if grant.AccessToken != "" {
		session := client.sessionFromGrant(&grant)
		client.setSession(context, session, identity.EventSignedIn)
		return session.User, nil
	}

	return &identity.User{ID: grant.ID, Email: grant.Email, Metadata: grant.Metadata}, nil
}

/*
SignInWithPassword performs the password grant.

Description: POSTs /token?grant_type=password. The established session is
applied locally and announced on the hub; callers observe it through their
subscription, never through this return.

Parameters:
  - context: context.Context
  - email: string
  - password: string

Returns:
  - error: Provider errors, message verbatim (e.g. "Invalid login credentials")
*/
func (client *Client) SignInWithPassword(context context.Context, email, password string) error {
	endpoint := client.baseURL + "/token?grant_type=password"

	var grant grantResponse
	err := client.post(context, endpoint, map[string]any{
		"email":    email,
		"password": password,
	}, "", &grant)
	if err != nil {
		return err
	}

	client.setSession(context, client.sessionFromGrant(&grant), identity.EventSignedIn)
	return nil
}

/*
SignOut terminates the current session at the provider.

Description: POSTs /logout with the bearer token. Local state is cleared and
a SIGNED_OUT event is announced even when the remote call fails: the tokens
are discarded either way, so consumers must not keep rendering a session.

Parameters:
  - context: context.Context

Returns:
  - error: Provider errors (the session manager treats these as fire-and-forget)
*/
func (client *Client) SignOut(context context.Context) error {
	client.mu.Lock()
	current := client.current
	client.mu.Unlock()

	var remoteErr error
	if current != nil {
		remoteErr = client.post(context, client.baseURL+"/logout", nil, current.AccessToken, nil)
	}

	client.setSession(context, nil, identity.EventSignedOut)
	return remoteErr
}

/*
CurrentSession resolves the session the provider currently considers active.

Description: Answers from memory first, then from the snapshot cache.
Expired snapshots are discarded. A nil session with a nil error means
"signed out", not failure.

Parameters:
  - context: context.Context

Returns:
  - *identity.Session: Active session or nil
  - error: Cache retrieval failures
*/
func (client *Client) CurrentSession(context context.Context) (*identity.Session, error) {
	client.mu.Lock()
	current := client.current
	client.mu.Unlock()

	if current != nil {
		return current, nil
	}

	if client.cache == nil {
		return nil, nil
	}

	cached, err := client.cache.Load(context)
	if err != nil {
		return nil, fmt.Errorf("gotrue_session_restore_failed: %w", err)
	}
	if cached == nil {
		return nil, nil
	}

	if cached.Expired() {
		_ = client.cache.Clear(context)
		return nil, nil
	}

	if cached.User == nil {
		cached.User = userFromToken(cached.AccessToken)
	}

	client.mu.Lock()
	client.current = cached
	client.mu.Unlock()

	return cached, nil
}

// OnSessionChange registers a callback on the notification hub.
func (client *Client) OnSessionChange(callback func(identity.AuthEvent, *identity.Session)) identity.Subscription {
	return client.events.subscribe(callback)
}

// Health checks provider reachability for the readiness probe.
func (client *Client) Health(context context.Context) error {
	request, err := http.NewRequestWithContext(context, http.MethodGet, client.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("gotrue_health_request_failed: %w", err)
	}
	request.Header.Set("apikey", client.apiKey)

	response, err := client.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("gotrue: health check failed: %w", err)
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode >= 400 {
		return fmt.Errorf("gotrue: health check returned %d", response.StatusCode)
	}
	return nil
}

// # Internals

// setSession is the single mutation point for the current session.
// It persists the snapshot (best effort) and announces the change.
func (client *Client) setSession(context context.Context, session *identity.Session, event identity.AuthEvent) {
	client.mu.Lock()
	client.current = session
	client.mu.Unlock()

	if client.cache != nil {
		var cacheErr error
		if session != nil {
			cacheErr = client.cache.Save(context, session)
		} else {
			cacheErr = client.cache.Clear(context)
		}
		if cacheErr != nil {
			client.logger.Warn("gotrue_session_cache_write_failed", slog.Any("error", cacheErr))
		}
	}

	client.events.emit(event, session)
}

// sessionFromGrant converts a token grant into a domain session, deriving
// the user from the JWT claims when the payload omits the user object.
func (client *Client) sessionFromGrant(grant *grantResponse) *identity.Session {
	session := &identity.Session{
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		TokenType:    grant.TokenType,
		User:         grant.User,
	}

	if grant.ExpiresIn > 0 {
		session.ExpiresAt = time.Now().Add(time.Duration(grant.ExpiresIn) * time.Second)
	}

	if session.User == nil {
		session.User = userFromToken(grant.AccessToken)
	}

	return session
}

// tokenClaims is the subset of access-token claims this system reads.
type tokenClaims struct {
	jwt.RegisteredClaims

	Email    string         `json:"email"`
	Metadata map[string]any `json:"user_metadata"`
}

// userFromToken derives the user from the access token's claims.
//
// The token is parsed WITHOUT signature verification: verification is the
// provider's job (we received the token from it over TLS moments ago), and
// the gateway holds no signing keys.
func userFromToken(accessToken string) *identity.User {
	claims := &tokenClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return nil
	}

	return &identity.User{
		ID:       claims.Subject,
		Email:    claims.Email,
		Metadata: claims.Metadata,
	}
}

// post issues a JSON POST and decodes the response into target (if non-nil).
func (client *Client) post(context context.Context, endpoint string, body any, bearer string, target any) error {
	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("gotrue_request_encode_failed: %w", err)
		}
		payload = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(context, http.MethodPost, endpoint, payload)
	if err != nil {
		return fmt.Errorf("gotrue_request_build_failed: %w", err)
	}

	request.Header.Set("apikey", client.apiKey)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		request.Header.Set("Authorization", "Bearer "+bearer)
	}

	response, err := client.httpClient.Do(request)
	if err != nil {
		return apperr.Provider("Identity service is unreachable", err)
	}
	defer func() { _ = response.Body.Close() }()

	raw, err := io.ReadAll(response.Body)
	if err != nil {
		return apperr.Provider("Identity service response could not be read", err)
	}

	if response.StatusCode >= 400 {
		return decodeError(response.StatusCode, raw)
	}

	if target != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, target); err != nil {
			return apperr.Provider("Identity service returned an unexpected payload", err)
		}
	}

	return nil
}

// decodeError maps a provider error payload onto an AppError, keeping the
// provider's message verbatim.
func decodeError(status int, raw []byte) error {
	parsed := &errorResponse{}
	_ = json.Unmarshal(raw, parsed)

	message := parsed.message()
	if message == "" {
		message = fmt.Sprintf("Identity service error (status %d)", status)
	}

	return apperr.Provider(message, nil)
}
