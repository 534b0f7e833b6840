// Copyright (c) 2026 FarmMarket. All rights reserved.
// Author: dev@farmmarket.az

package authflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmmarket/api/internal/identity"
	"github.com/farmmarket/api/internal/identity/session"
	"github.com/farmmarket/api/internal/platform/apperr"
	"github.com/farmmarket/api/internal/profile"
)

// fakeSessions records calls and returns scripted errors.
type fakeSessions struct {
	calls []string

	signInErr error
	signUpErr error

	lastRegistration session.Registration
	panicOnSignIn    bool
}

func (s *fakeSessions) SignIn(_ context.Context, email, password string) error {
	s.calls = append(s.calls, "SignIn")
	if s.panicOnSignIn {
		panic("subscription callback exploded")
	}
	return s.signInErr
}

func (s *fakeSessions) SignUp(_ context.Context, input session.Registration) error {
	s.calls = append(s.calls, "SignUp")
	s.lastRegistration = input
	return s.signUpErr
}

func (s *fakeSessions) SignOut(_ context.Context) {
	s.calls = append(s.calls, "SignOut")
}

func newTestController(sessions *fakeSessions) *Controller {
	return NewController(sessions, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// # Transitions

func TestController_Transitions(t *testing.T) {
	controller := newTestController(&fakeSessions{})

	assert.Equal(t, ModeLogin, controller.Mode())
	assert.Empty(t, controller.Role())

	controller.SwitchMode(ModeRegister)
	controller.SelectRole(profile.RoleFarmer)
	assert.Equal(t, profile.RoleFarmer, controller.Role())

	// Unknown roles are ignored.
	controller.SelectRole(profile.Role("admin"))
	assert.Equal(t, profile.RoleFarmer, controller.Role())

	controller.BackToRoleSelection()
	assert.Equal(t, ModeRegister, controller.Mode())
	assert.Empty(t, controller.Role())

	// Leaving registration clears the chosen role.
	controller.SelectRole(profile.RoleCustomer)
	controller.SwitchMode(ModeLogin)
	assert.Empty(t, controller.Role())
}

// # Login

func TestController_SubmitLogin(t *testing.T) {
	t.Run("an invalid form never reaches the provider", func(t *testing.T) {
		sessions := &fakeSessions{}
		controller := newTestController(sessions)

		outcome := controller.SubmitLogin(context.Background(), LoginForm{Email: "bad", Password: "secret123"})

		assert.False(t, outcome.OK)
		assert.Equal(t, "Validation Error", outcome.Notice.Title)
		assert.Equal(t, "Please enter a valid email address", outcome.Notice.Description)
		assert.Empty(t, sessions.calls)
	})

	t.Run("maps rejected credentials to friendly phrasing", func(t *testing.T) {
		sessions := &fakeSessions{signInErr: apperr.Provider("Invalid login credentials", nil)}
		controller := newTestController(sessions)

		outcome := controller.SubmitLogin(context.Background(), LoginForm{Email: "leyla@example.com", Password: "secret123"})

		assert.False(t, outcome.OK)
		assert.Equal(t, "Login Failed", outcome.Notice.Title)
		assert.Equal(t, "Invalid email or password. Please try again.", outcome.Notice.Description)
	})

	t.Run("passes other provider messages through verbatim", func(t *testing.T) {
		sessions := &fakeSessions{signInErr: apperr.Provider("Email not confirmed", nil)}
		controller := newTestController(sessions)

		outcome := controller.SubmitLogin(context.Background(), LoginForm{Email: "leyla@example.com", Password: "secret123"})

		assert.Equal(t, "Email not confirmed", outcome.Notice.Description)
	})

	t.Run("success", func(t *testing.T) {
		controller := newTestController(&fakeSessions{})

		outcome := controller.SubmitLogin(context.Background(), LoginForm{Email: "leyla@example.com", Password: "secret123"})

		assert.True(t, outcome.OK)
		assert.Equal(t, "Welcome back!", outcome.Notice.Title)
		assert.Equal(t, "You have successfully signed in.", outcome.Notice.Description)
		assert.Equal(t, "/", outcome.Redirect)
	})

	t.Run("rejects a second submission while one is in flight", func(t *testing.T) {
		sessions := &fakeSessions{}
		controller := newTestController(sessions)
		controller.submitting = true

		outcome := controller.SubmitLogin(context.Background(), LoginForm{Email: "leyla@example.com", Password: "secret123"})

		assert.False(t, outcome.OK)
		assert.Equal(t, "Please wait", outcome.Notice.Title)
		assert.Empty(t, sessions.calls)
	})

	t.Run("a panic resets the submitting flag and reports the generic notice", func(t *testing.T) {
		sessions := &fakeSessions{panicOnSignIn: true}
		controller := newTestController(sessions)

		outcome := controller.SubmitLogin(context.Background(), LoginForm{Email: "leyla@example.com", Password: "secret123"})

		assert.False(t, outcome.OK)
		assert.Equal(t, "Error", outcome.Notice.Title)
		assert.Equal(t, "An unexpected error occurred. Please try again.", outcome.Notice.Description)
		assert.False(t, controller.Submitting())
	})
}

// # Registration

func TestController_SubmitRegistration(t *testing.T) {
	t.Run("validation runs before the account-type check", func(t *testing.T) {
		sessions := &fakeSessions{}
		controller := newTestController(sessions)

		form := validRegisterForm(profile.RoleCustomer)
		form.Role = ""
		form.Password = "123"

		outcome := controller.SubmitRegistration(context.Background(), form)

		assert.Equal(t, "Validation Error", outcome.Notice.Title)
		assert.Equal(t, "Password must be at least 6 characters", outcome.Notice.Description)
		assert.Empty(t, sessions.calls)
	})

	t.Run("a missing account type stops before the cascade", func(t *testing.T) {
		sessions := &fakeSessions{}
		controller := newTestController(sessions)

		form := validRegisterForm(profile.RoleCustomer)
		form.Role = ""

		outcome := controller.SubmitRegistration(context.Background(), form)

		assert.False(t, outcome.OK)
		assert.Equal(t, "Select Account Type", outcome.Notice.Title)
		assert.Equal(t, "Please select whether you're a farmer or customer.", outcome.Notice.Description)
		assert.Empty(t, sessions.calls)
		assert.False(t, controller.Submitting())
	})

	t.Run("maps duplicate accounts to friendly phrasing", func(t *testing.T) {
		sessions := &fakeSessions{signUpErr: apperr.Provider("User already registered", nil)}
		controller := newTestController(sessions)

		outcome := controller.SubmitRegistration(context.Background(), validRegisterForm(profile.RoleCustomer))

		assert.Equal(t, "Registration Failed", outcome.Notice.Title)
		assert.Equal(t, "This email is already registered. Please sign in instead.", outcome.Notice.Description)
	})

	t.Run("other cascade errors pass through verbatim", func(t *testing.T) {
		sessions := &fakeSessions{signUpErr: errors.New("postgres_profile_store_insert_failed: timeout")}
		controller := newTestController(sessions)

		outcome := controller.SubmitRegistration(context.Background(), validRegisterForm(profile.RoleCustomer))

		assert.Equal(t, "Registration Failed", outcome.Notice.Title)
		assert.Contains(t, outcome.Notice.Description, "timeout")
	})

	t.Run("drops empty optional fields from the cascade input", func(t *testing.T) {
		sessions := &fakeSessions{}
		controller := newTestController(sessions)

		form := validRegisterForm(profile.RoleFarmer)
		form.Phone = "   "
		form.FarmSize = ""

		outcome := controller.SubmitRegistration(context.Background(), form)
		require.True(t, outcome.OK)

		assert.Nil(t, sessions.lastRegistration.Phone)
		assert.Nil(t, sessions.lastRegistration.FarmSize)
		assert.Equal(t, "Quba Orchards", sessions.lastRegistration.FarmName)
	})

	t.Run("success", func(t *testing.T) {
		controller := newTestController(&fakeSessions{})

		outcome := controller.SubmitRegistration(context.Background(), validRegisterForm(profile.RoleFarmer))

		assert.True(t, outcome.OK)
		assert.Equal(t, "Account Created!", outcome.Notice.Title)
		assert.Equal(t, "Welcome to FarmMarket Azerbaijan!", outcome.Notice.Description)
		assert.Equal(t, "/", outcome.Redirect)
	})
}

func TestController_ShouldRedirect(t *testing.T) {
	controller := newTestController(&fakeSessions{})
	active := &identity.Session{AccessToken: "tok"}

	assert.False(t, controller.ShouldRedirect(session.State{Loading: true}),
		"unknown state must not trigger a redirect")
	assert.False(t, controller.ShouldRedirect(session.State{Loading: true, Session: active}),
		"still loading, even with a stale snapshot")
	assert.False(t, controller.ShouldRedirect(session.State{}))
	assert.True(t, controller.ShouldRedirect(session.State{Session: active}))
}
