// Copyright (c) 2026 FarmMarket. All rights reserved.
// Author: dev@farmmarket.az

/*
Package identity defines the boundary to the hosted identity provider.

It contains the domain entities (User, Session) and the contracts that the
session manager orchestrates against. The provider itself is an external
collaborator: password hashing, token signing, and refresh internals all
happen on its side of the wire.

# Architecture

This layer is the "Truth" of the auth flow. Entities defined here have no
infrastructure dependencies; concrete transports (see the gotrue subpackage)
implement the contracts.
*/
package identity

import (
	"context"
	"time"
)

// # Domain Entities

// User is the provider's view of an account: identifier plus email.
//
// Metadata carries the auxiliary data attached at sign-up (full name, phone,
// role). It is never mutated by this system.
type User struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Metadata map[string]any `json:"user_metadata,omitempty"`
}

// Session is the opaque credential bundle issued by the provider.
//
// The tokens are provider-owned; this system only caches the bundle and
// derives User from it. Expiry handling beyond the ExpiresAt check also
// belongs to the provider.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         *User     `json:"user"`
}

// Expired reports whether the session's access token is past its expiry.
func (s *Session) Expired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// # Auth Events

// AuthEvent names a session-change notification pushed by the provider.
type AuthEvent string

const (
	// EventInitialSession is delivered for the resting state discovered at startup.
	EventInitialSession AuthEvent = "INITIAL_SESSION"

	// EventSignedIn is delivered after a successful credential authentication.
	EventSignedIn AuthEvent = "SIGNED_IN"

	// EventSignedOut is delivered after session termination.
	EventSignedOut AuthEvent = "SIGNED_OUT"

	// EventTokenRefreshed is delivered when the provider rotates the session tokens.
	EventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)

// # Provider Contract

// SignUpInput holds the data for a provider account-creation request.
type SignUpInput struct {
	Email    string
	Password string

	// RedirectTo is the confirmation redirect target (the site root).
	RedirectTo string

	// Data is auxiliary metadata stored at the provider level
	// (full_name, phone, role).
	Data map[string]any
}

// Provider defines the request/response surface of the hosted identity service.
type Provider interface {

	/*
		SignUp requests the creation of a new account.

		Parameters:
		  - context: context.Context
		  - input: SignUpInput

		Returns:
		  - *User: The created (possibly not yet confirmed) account
		  - error: Provider errors, message preserved verbatim
	*/
	SignUp(context context.Context, input SignUpInput) (*User, error)

	/*
		SignInWithPassword requests password-based authentication.

		The resulting session is NOT returned here: it is delivered through
		the session-change subscription, matching the push-style contract.

		Parameters:
		  - context: context.Context
		  - email: string
		  - password: string

		Returns:
		  - error: Provider errors, message preserved verbatim
	*/
	SignInWithPassword(context context.Context, email, password string) error

	/*
		SignOut requests termination of the current session.

		Parameters:
		  - context: context.Context

		Returns:
		  - error: Provider errors (callers may ignore; see session manager)
	*/
	SignOut(context context.Context) error

	/*
		CurrentSession resolves the session the provider currently considers
		active, or nil if there is none.

		Parameters:
		  - context: context.Context

		Returns:
		  - *Session: The active session, or nil when signed out
		  - error: Resolution failures
	*/
	CurrentSession(context context.Context) (*Session, error)

	/*
		OnSessionChange registers a callback for session-change notifications.

		The callback receives every subsequent change until the returned
		subscription is released. Delivery is synchronous on the mutating
		call's goroutine; callbacks must not block.

		Parameters:
		  - callback: func(AuthEvent, *Session)

		Returns:
		  - Subscription: Handle whose Unsubscribe stops delivery
	*/
	OnSessionChange(callback func(AuthEvent, *Session)) Subscription
}

// Subscription is a disposable handle to a session-change registration.
type Subscription interface {
	// Unsubscribe releases the registration. It is idempotent.
	Unsubscribe()
}
