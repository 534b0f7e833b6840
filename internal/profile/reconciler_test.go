// Copyright (c) 2026 FarmMarket. All rights reserved.
// Author: dev@farmmarket.az

package profile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmmarket/api/internal/platform/apperr"
)

// fakeStore records inserts and can be primed to fail per call.
type fakeStore struct {
	profiles  []string
	farmers   []string
	customers []string

	profileErr  error
	farmerErr   error
	customerErr error

	record *Profile
}

func (s *fakeStore) InsertProfile(_ context.Context, record *Profile) error {
	if s.profileErr != nil {
		return s.profileErr
	}
	s.profiles = append(s.profiles, record.ID)
	return nil
}

func (s *fakeStore) InsertFarmerProfile(_ context.Context, record *FarmerProfile) error {
	if s.farmerErr != nil {
		return s.farmerErr
	}
	s.farmers = append(s.farmers, record.UserID)
	return nil
}

func (s *fakeStore) InsertCustomerProfile(_ context.Context, record *CustomerProfile) error {
	if s.customerErr != nil {
		return s.customerErr
	}
	s.customers = append(s.customers, record.UserID)
	return nil
}

func (s *fakeStore) GetProfile(_ context.Context, userID string) (*Profile, error) {
	if s.record != nil && s.record.ID == userID {
		return s.record, nil
	}
	return nil, apperr.NotFound("Profile")
}

// fakeQueue is an in-memory PendingQueue.
type fakeQueue struct {
	entries map[string]*PendingSignup
}

func newFakeQueue(entries ...*PendingSignup) *fakeQueue {
	queue := &fakeQueue{entries: map[string]*PendingSignup{}}
	for _, entry := range entries {
		queue.entries[entry.UserID] = entry
	}
	return queue
}

func (q *fakeQueue) Enqueue(_ context.Context, entry *PendingSignup) error {
	q.entries[entry.UserID] = entry
	return nil
}

func (q *fakeQueue) List(_ context.Context) ([]*PendingSignup, error) {
	var out []*PendingSignup
	for _, entry := range q.entries {
		out = append(out, entry)
	}
	return out, nil
}

func (q *fakeQueue) Remove(_ context.Context, userID string) error {
	delete(q.entries, userID)
	return nil
}

func testReconciler(store Store, queue PendingQueue) *Reconciler {
	return NewReconciler(store, queue, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestReconciler_ReconcileOnce(t *testing.T) {
	t.Run("completes a parked farmer cascade", func(t *testing.T) {
		store := &fakeStore{}
		queue := newFakeQueue(&PendingSignup{
			UserID:  "user-1",
			Profile: Profile{ID: "user-1", Email: "rashid@example.com", FullName: "Rashid Aliyev", Role: RoleFarmer},
			Farmer:  &FarmerProfile{UserID: "user-1", FarmName: "Quba Orchards", FarmLocation: "Quba"},
		})

		testReconciler(store, queue).ReconcileOnce(context.Background())

		assert.Equal(t, []string{"user-1"}, store.profiles)
		assert.Equal(t, []string{"user-1"}, store.farmers)
		assert.Empty(t, queue.entries)
	})

	t.Run("treats conflicts as already-done steps", func(t *testing.T) {
		store := &fakeStore{profileErr: apperr.Conflict("Profile already exists")}
		queue := newFakeQueue(&PendingSignup{
			UserID:   "user-2",
			Profile:  Profile{ID: "user-2", Role: RoleCustomer},
			Customer: &CustomerProfile{UserID: "user-2"},
		})

		testReconciler(store, queue).ReconcileOnce(context.Background())

		assert.Equal(t, []string{"user-2"}, store.customers)
		assert.Empty(t, queue.entries)
	})

	t.Run("requeues on transient failure with an attempt count", func(t *testing.T) {
		store := &fakeStore{profileErr: errors.New("connection refused")}
		queue := newFakeQueue(&PendingSignup{
			UserID:  "user-3",
			Profile: Profile{ID: "user-3", Role: RoleCustomer},
		})

		testReconciler(store, queue).ReconcileOnce(context.Background())

		require.Contains(t, queue.entries, "user-3")
		assert.Equal(t, 1, queue.entries["user-3"].Attempts)
	})

	t.Run("drops entries after the attempt cap", func(t *testing.T) {
		store := &fakeStore{profileErr: errors.New("connection refused")}
		queue := newFakeQueue(&PendingSignup{
			UserID:   "user-4",
			Profile:  Profile{ID: "user-4", Role: RoleCustomer},
			Attempts: maxReconcileAttempts - 1,
		})

		testReconciler(store, queue).ReconcileOnce(context.Background())

		assert.Empty(t, queue.entries)
	})
}
