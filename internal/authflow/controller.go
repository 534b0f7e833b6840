// Copyright (c) 2026 FarmMarket. All rights reserved.
// Author: dev@farmmarket.az

/*
Package authflow drives the login and registration flows.

It owns the form-level rules: which mode the flow is in, whether an
account type has been chosen, ordered validation with first-violation
reporting, one submission at a time, and the mapping of raw provider
errors onto the notices shown to people.

The package never talks to the provider or the database directly;
everything goes through the session manager.
*/
package authflow

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/farmmarket/api/internal/identity/session"
	"github.com/farmmarket/api/internal/profile"
	"github.com/farmmarket/api/pkg/pointer"
)

// # Types

// Mode names the active flow.
type Mode string

const (
	ModeLogin    Mode = "login"
	ModeRegister Mode = "register"
)

const (
	roleFarmer   = profile.RoleFarmer
	roleCustomer = profile.RoleCustomer
)

// LoginForm carries the sign-in fields.
type LoginForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterForm carries the registration fields. Role decides which of the
// role-specific groups is read.
type RegisterForm struct {
	Email    string       `json:"email"`
	Password string       `json:"password"`
	FullName string       `json:"full_name"`
	Phone    string       `json:"phone"`
	Role     profile.Role `json:"role"`

	// Farm information, read for farmer registrations.
	FarmName     string   `json:"farm_name"`
	FarmLocation string   `json:"farm_location"`
	FarmSize     string   `json:"farm_size"`
	ProductTypes []string `json:"product_types"`

	// Delivery information, read for customer registrations.
	DeliveryAddress string `json:"delivery_address"`
	City            string `json:"city"`
}

// Notice is the user-facing result of a submission, shown as a toast.
type Notice struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Outcome reports how a submission ended.
type Outcome struct {
	OK     bool   `json:"ok"`
	Notice Notice `json:"notice"`

	// Redirect is the path the client should navigate to, set on success.
	Redirect string `json:"redirect,omitempty"`
}

// # Controller

// SessionService is the slice of the session manager the controller uses.
type SessionService interface {
	SignIn(context context.Context, email, password string) error
	SignUp(context context.Context, input session.Registration) error
	SignOut(context context.Context)
}

// Controller is the auth-form state machine.
//
// Mode and role transitions reset the relevant state; submissions are
// serialized through the submitting flag, which is guaranteed to reset
// even when a submission panics.
type Controller struct {
	sessions SessionService
	logger   *slog.Logger

	mu         sync.Mutex
	mode       Mode
	role       profile.Role
	submitting bool
}

// NewController creates a controller in login mode.
func NewController(sessions SessionService, logger *slog.Logger) *Controller {
	return &Controller{
		sessions: sessions,
		logger:   logger,
		mode:     ModeLogin,
	}
}

// # Mode & Role Transitions

// Mode returns the active flow mode.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Role returns the chosen account type, or "" before the choice is made.
func (c *Controller) Role() profile.Role {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.role
}

// SwitchMode moves between login and registration. Switching always
// clears the chosen account type, so re-entering registration starts at
// the role-selection step.
func (c *Controller) SwitchMode(mode Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = mode
	c.role = ""
}

// SelectRole records the chosen account type. Unknown roles are ignored.
func (c *Controller) SelectRole(role profile.Role) {
	if !role.Valid() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.role = role
}

// BackToRoleSelection clears the chosen account type without touching
// the mode.
func (c *Controller) BackToRoleSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.role = ""
}

// # Submissions

// beginSubmit claims the submitting flag. It reports false when another
// submission is already in flight.
func (c *Controller) beginSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitting {
		return false
	}
	c.submitting = true
	return true
}

func (c *Controller) endSubmit() {
	c.mu.Lock()
	c.submitting = false
	c.mu.Unlock()
}

// Submitting reports whether a submission is in flight.
func (c *Controller) Submitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitting
}

/*
ShouldRedirect reports whether an already-authenticated caller should leave
the auth flow instead of submitting a form.

# Parameters
  - state: The current authentication state snapshot.

# Returns
  - bool: True once the state is known and holds an active session.
*/
func (c *Controller) ShouldRedirect(state session.State) bool {
	return !state.Loading && state.Session != nil
}

// redirectOutcome is the terminal exit for callers who already hold a session.
var redirectOutcome = Outcome{OK: true, Redirect: "/"}

var busyOutcome = Outcome{
	OK: false,
	Notice: Notice{
		Title:       "Please wait",
		Description: "A submission is already in progress.",
	},
}

var panicOutcome = Outcome{
	OK: false,
	Notice: Notice{
		Title:       "Error",
		Description: "An unexpected error occurred. Please try again.",
	},
}

/*
SubmitLogin runs the sign-in flow.

Description: Validation runs first and an invalid form never reaches the
provider. The submitting flag is held for the duration and released on
every exit path, panics included.

Parameters:
  - context: context.Context
  - form: LoginForm

Returns:
  - Outcome: The user-facing result
*/
func (c *Controller) SubmitLogin(context context.Context, form LoginForm) (outcome Outcome) {
	if msg := ValidateCredentials(form.Email, form.Password); msg != "" {
		return Outcome{OK: false, Notice: Notice{Title: "Validation Error", Description: msg}}
	}

	if !c.beginSubmit() {
		return busyOutcome
	}
	defer c.endSubmit()
	defer c.recoverSubmit(&outcome)

	if err := c.sessions.SignIn(context, form.Email, form.Password); err != nil {
		description := err.Error()
		if description == "Invalid login credentials" {
			description = "Invalid email or password. Please try again."
		}
		return Outcome{OK: false, Notice: Notice{Title: "Login Failed", Description: description}}
	}

	return Outcome{
		OK:       true,
		Notice:   Notice{Title: "Welcome back!", Description: "You have successfully signed in."},
		Redirect: "/",
	}
}

/*
SubmitRegistration runs the registration flow.

Description: Validation runs first, then the account-type check, then the
signup cascade. The ordering mirrors the form: a missing account type is
only reported once the field-level values are acceptable.

Parameters:
  - context: context.Context
  - form: *RegisterForm

Returns:
  - Outcome: The user-facing result
*/
func (c *Controller) SubmitRegistration(context context.Context, form *RegisterForm) (outcome Outcome) {
	if msg := ValidateRegistration(form); msg != "" {
		return Outcome{OK: false, Notice: Notice{Title: "Validation Error", Description: msg}}
	}

	if !c.beginSubmit() {
		return busyOutcome
	}
	defer c.endSubmit()
	defer c.recoverSubmit(&outcome)

	if !form.Role.Valid() {
		return Outcome{OK: false, Notice: Notice{
			Title:       "Select Account Type",
			Description: "Please select whether you're a farmer or customer.",
		}}
	}

	if err := c.sessions.SignUp(context, c.registration(form)); err != nil {
		description := err.Error()
		if strings.Contains(description, "already registered") {
			description = "This email is already registered. Please sign in instead."
		}
		return Outcome{OK: false, Notice: Notice{Title: "Registration Failed", Description: description}}
	}

	return Outcome{
		OK:       true,
		Notice:   Notice{Title: "Account Created!", Description: "Welcome to FarmMarket Azerbaijan!"},
		Redirect: "/",
	}
}

// SignOut terminates the session. Failures are handled inside the session
// manager; the caller always gets a completed sign-out.
func (c *Controller) SignOut(context context.Context) {
	c.sessions.SignOut(context)
}

// # Internals

// recoverSubmit converts a panicking submission into the generic error
// notice. The deferred endSubmit still runs, so the flag resets.
func (c *Controller) recoverSubmit(outcome *Outcome) {
	if r := recover(); r != nil {
		c.logger.Error("auth_submit_panicked", slog.Any("panic", r))
		*outcome = panicOutcome
	}
}

// registration converts the form into the cascade input, dropping empty
// optional fields.
func (c *Controller) registration(form *RegisterForm) session.Registration {
	input := session.Registration{
		Email:    form.Email,
		Password: form.Password,
		FullName: strings.TrimSpace(form.FullName),
		Role:     form.Role,
	}

	if phone := strings.TrimSpace(form.Phone); phone != "" {
		input.Phone = pointer.To(phone)
	}

	switch form.Role {
	case roleFarmer:
		input.FarmName = strings.TrimSpace(form.FarmName)
		input.FarmLocation = strings.TrimSpace(form.FarmLocation)
		if size := strings.TrimSpace(form.FarmSize); size != "" {
			input.FarmSize = pointer.To(size)
		}
		input.ProductTypes = form.ProductTypes
	case roleCustomer:
		if address := strings.TrimSpace(form.DeliveryAddress); address != "" {
			input.DeliveryAddress = pointer.To(address)
		}
		if city := strings.TrimSpace(form.City); city != "" {
			input.City = pointer.To(city)
		}
	}

	return input
}
