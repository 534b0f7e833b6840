// Copyright (c) 2026 FarmMarket. All rights reserved.
// Author: dev@farmmarket.az

package profile

import (
	"context"
	"log/slog"
	"time"

	"github.com/farmmarket/api/internal/platform/apperr"
)

// # Signup Reconciliation

// maxReconcileAttempts caps how often a single entry is retried before it
// is dropped as unrecoverable.
const maxReconcileAttempts = 10

// Reconciler finishes interrupted signup cascades in the background.
//
// A signup writes the provider account first, then the profile rows. A
// crash or database outage between those steps leaves a provider account
// with no marketplace rows; such cascades are parked on the [PendingQueue]
// and replayed here until the rows exist.
type Reconciler struct {
	store  Store
	queue  PendingQueue
	logger *slog.Logger
}

// NewReconciler creates a reconciler over the given store and queue.
func NewReconciler(store Store, queue PendingQueue, logger *slog.Logger) *Reconciler {
	return &Reconciler{store: store, queue: queue, logger: logger}
}

// Run replays pending entries on the given interval until ctx is canceled.
// Intended to be started as a goroutine from main.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.ReconcileOnce(ctx)
		}
	}
}

// ReconcileOnce replays every pending entry a single time.
func (r *Reconciler) ReconcileOnce(ctx context.Context) {
	entries, err := r.queue.List(ctx)
	if err != nil {
		r.logger.Error("reconcile_list_failed", slog.Any("error", err))
		return
	}

	for _, entry := range entries {
		if err := r.replay(ctx, entry); err != nil {
			entry.Attempts++
			if entry.Attempts >= maxReconcileAttempts {
				r.logger.Error("reconcile_gave_up",
					slog.String("user_id", entry.UserID),
					slog.Int("attempts", entry.Attempts),
					slog.Any("error", err),
				)
				if removeErr := r.queue.Remove(ctx, entry.UserID); removeErr != nil {
					r.logger.Warn("reconcile_remove_failed", slog.Any("error", removeErr))
				}
				continue
			}

			r.logger.Warn("reconcile_retry_scheduled",
				slog.String("user_id", entry.UserID),
				slog.Int("attempts", entry.Attempts),
				slog.Any("error", err),
			)
			if saveErr := r.queue.Enqueue(ctx, entry); saveErr != nil {
				r.logger.Warn("reconcile_requeue_failed", slog.Any("error", saveErr))
			}
			continue
		}

		if err := r.queue.Remove(ctx, entry.UserID); err != nil {
			r.logger.Warn("reconcile_remove_failed", slog.Any("error", err))
			continue
		}

		r.logger.Info("reconcile_completed", slog.String("user_id", entry.UserID))
	}
}

// replay runs the remaining cascade steps. Conflicts mean the row already
// exists, which is the goal state, so they are treated as success.
func (r *Reconciler) replay(ctx context.Context, entry *PendingSignup) error {
	if err := r.store.InsertProfile(ctx, &entry.Profile); err != nil && !isConflict(err) {
		return err
	}

	if entry.Farmer != nil {
		if err := r.store.InsertFarmerProfile(ctx, entry.Farmer); err != nil && !isConflict(err) {
			return err
		}
	}

	if entry.Customer != nil {
		if err := r.store.InsertCustomerProfile(ctx, entry.Customer); err != nil && !isConflict(err) {
			return err
		}
	}

	return nil
}

func isConflict(err error) bool {
	ae := apperr.As(err)
	return ae != nil && ae.Code == "CONFLICT"
}
