// Copyright (c) 2026 FarmMarket. All rights reserved.
// Author: dev@farmmarket.az

/*
Package session maintains the authoritative authentication state of the
service and orchestrates the account lifecycle against the identity
provider and the profile store.

# State Model

The manager owns a single state cell holding the current user, the current
session, and a loading flag. The flag starts true and drops to false on
whichever completes first: the initial session fetch or the first provider
notification. It never goes back to true. When the fetch and a notification
race, the later write wins.

# Signup Cascade

Registration is strictly sequential: provider account, then base profile,
then the role-specific profile row. Each step runs only if the previous one
succeeded. A step failing after the provider account exists parks the
remaining rows on the pending queue so the reconciler can finish the
cascade later.
*/
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/farmmarket/api/internal/identity"
	"github.com/farmmarket/api/internal/profile"
)

// # Types

// Registration carries everything collected by the signup form.
type Registration struct {
	Email    string
	Password string
	FullName string
	Phone    *string
	Role     profile.Role

	// Producer fields, meaningful when Role is farmer.
	FarmName     string
	FarmLocation string
	FarmSize     *string
	ProductTypes []string

	// Buyer fields, meaningful when Role is customer.
	DeliveryAddress *string
	City            *string
}

// State is a point-in-time snapshot of the authentication cell.
type State struct {
	User    *identity.User    `json:"user,omitempty"`
	Session *identity.Session `json:"session,omitempty"`
	Loading bool              `json:"loading"`
}

// Manager owns the authentication state cell.
type Manager struct {
	provider    identity.Provider
	profiles    profile.Store
	pending     profile.PendingQueue
	redirectURL string
	logger      *slog.Logger

	mu           sync.Mutex
	user         *identity.User
	session      *identity.Session
	loading      bool
	subscription identity.Subscription
}

// NewManager creates a manager in the loading state. Call [Manager.Start]
// to begin tracking the provider.
func NewManager(provider identity.Provider, profiles profile.Store, pending profile.PendingQueue, redirectURL string, logger *slog.Logger) *Manager {
	return &Manager{
		provider:    provider,
		profiles:    profiles,
		pending:     pending,
		redirectURL: redirectURL,
		logger:      logger,
		loading:     true,
	}
}

// # Lifecycle

/*
Start wires the manager to the provider.

Description: The change subscription is registered BEFORE the one-shot
current-session fetch so no notification can fall between the two. Both
paths funnel through the same apply step; either one ends the loading
state, and when they race the later write wins.

Parameters:
  - context: context.Context

Returns:
  - error: Current-session retrieval failures (the subscription stays active)
*/
func (m *Manager) Start(context context.Context) error {
	m.mu.Lock()
	if m.subscription == nil {
		m.subscription = m.provider.OnSessionChange(func(event identity.AuthEvent, session *identity.Session) {
			m.apply(session)
			m.logger.Debug("auth_state_changed",
				slog.String("event", string(event)),
				slog.Bool("has_session", session != nil),
			)
		})
	}
	m.mu.Unlock()

	current, err := m.provider.CurrentSession(context)
	if err != nil {
		// Still leave the loading state: the cell must settle even when the
		// resting session cannot be read.
		m.apply(nil)
		return err
	}

	m.apply(current)
	return nil
}

// Close detaches the manager from the provider. The last applied state
// remains readable; it just stops tracking changes.
func (m *Manager) Close() {
	m.mu.Lock()
	subscription := m.subscription
	m.subscription = nil
	m.mu.Unlock()

	if subscription != nil {
		subscription.Unsubscribe()
	}
}

// apply is the single mutation point for the state cell.
func (m *Manager) apply(session *identity.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.session = session
	if session != nil {
		m.user = session.User
	} else {
		m.user = nil
	}
	m.loading = false
}

// Snapshot returns the current state of the cell.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return State{User: m.user, Session: m.session, Loading: m.loading}
}

// # Account Operations

/*
SignUp runs the registration cascade.

Description: Creates the provider account with the display metadata, then
the base profile row, then the role-specific row. The steps are strictly
ordered and each runs only after the previous succeeded. When a profile
step fails, the remaining rows are parked on the pending queue for the
reconciler and the step's error is returned.

Parameters:
  - context: context.Context
  - input: Registration

Returns:
  - error: The first failing step's error
*/
func (m *Manager) SignUp(context context.Context, input Registration) error {
	metadata := map[string]any{
		"full_name": input.FullName,
		"role":      string(input.Role),
	}
	if input.Phone != nil {
		metadata["phone"] = *input.Phone
	}

	user, err := m.provider.SignUp(context, identity.SignUpInput{
		Email:      input.Email,
		Password:   input.Password,
		RedirectTo: m.redirectURL,
		Data:       metadata,
	})
	if err != nil {
		return err
	}

	entry := m.pendingEntry(user, input)

	if err := m.profiles.InsertProfile(context, &entry.Profile); err != nil {
		m.park(context, entry, err)
		return err
	}

	if entry.Farmer != nil {
		if err := m.profiles.InsertFarmerProfile(context, entry.Farmer); err != nil {
			m.park(context, entry, err)
			return err
		}
	}

	if entry.Customer != nil {
		if err := m.profiles.InsertCustomerProfile(context, entry.Customer); err != nil {
			m.park(context, entry, err)
			return err
		}
	}

	return nil
}

/*
SignIn authenticates with email and password.

Description: On success the provider announces the new session on the
change subscription; the state cell is updated there, not here. Callers
should read [Manager.Snapshot] after the notification lands.

Parameters:
  - context: context.Context
  - email: string
  - password: string

Returns:
  - error: Provider errors, message verbatim
*/
func (m *Manager) SignIn(context context.Context, email, password string) error {
	return m.provider.SignInWithPassword(context, email, password)
}

// SignOut terminates the session. Provider failures are logged and
// swallowed: the local state is cleared either way, so callers have
// nothing useful to do with the error.
func (m *Manager) SignOut(context context.Context) {
	if err := m.provider.SignOut(context); err != nil {
		m.logger.Warn("sign_out_provider_failed", slog.Any("error", err))
	}
}

// # Internals

// pendingEntry assembles the full post-provider cascade for a registration.
func (m *Manager) pendingEntry(user *identity.User, input Registration) *profile.PendingSignup {
	entry := &profile.PendingSignup{
		UserID: user.ID,
		Profile: profile.Profile{
			ID:       user.ID,
			Email:    input.Email,
			FullName: input.FullName,
			Phone:    input.Phone,
			Role:     input.Role,
		},
	}

	switch input.Role {
	case profile.RoleFarmer:
		if input.FarmName != "" && input.FarmLocation != "" {
			entry.Farmer = &profile.FarmerProfile{
				UserID:       user.ID,
				FarmName:     input.FarmName,
				FarmLocation: input.FarmLocation,
				FarmSize:     input.FarmSize,
				ProductTypes: input.ProductTypes,
			}
		}
	case profile.RoleCustomer:
		entry.Customer = &profile.CustomerProfile{
			UserID:          user.ID,
			DeliveryAddress: input.DeliveryAddress,
			City:            input.City,
		}
	}

	return entry
}

// park queues the unfinished cascade for the reconciler.
func (m *Manager) park(context context.Context, entry *profile.PendingSignup, cause error) {
	m.logger.Warn("signup_cascade_interrupted",
		slog.String("user_id", entry.UserID),
		slog.Any("error", cause),
	)

	if err := m.pending.Enqueue(context, entry); err != nil {
		m.logger.Error("signup_cascade_park_failed",
			slog.String("user_id", entry.UserID),
			slog.Any("error", err),
		)
	}
}
