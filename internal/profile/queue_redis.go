// Copyright (c) 2026 FarmMarket. All rights reserved.
// Author: dev@farmmarket.az

package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/farmmarket/api/internal/platform/constants"
)

// # Pending Signup Queue

// PendingSignup captures an interrupted post-signup cascade.
//
// The provider account exists but one or more marketplace rows were not
// written. The reconciler retries the remaining inserts until they succeed
// or the entry ages out.
type PendingSignup struct {
	UserID     string           `json:"user_id"`
	Profile    Profile          `json:"profile"`
	Farmer     *FarmerProfile   `json:"farmer,omitempty"`
	Customer   *CustomerProfile `json:"customer,omitempty"`
	Attempts   int              `json:"attempts"`
	EnqueuedAt time.Time        `json:"enqueued_at"`
}

// PendingQueue parks interrupted signup cascades for later retry.
type PendingQueue interface {
	// Enqueue stores (or overwrites) the pending entry for a user.
	Enqueue(context context.Context, entry *PendingSignup) error

	// List returns all pending entries.
	List(context context.Context) ([]*PendingSignup, error)

	// Remove deletes the entry for a user. Removing a missing entry is not
	// an error.
	Remove(context context.Context, userID string) error
}

// pendingTTL bounds how long an interrupted cascade is retried. Entries
// older than this describe accounts whose owner has long since retried
// registration or walked away.
const pendingTTL = 7 * 24 * time.Hour

// RedisPendingQueue implements [PendingQueue] on Redis, one key per user.
type RedisPendingQueue struct {
	client *redis.Client
}

// NewRedisPendingQueue creates a pending-signup queue on the given client.
func NewRedisPendingQueue(client *redis.Client) *RedisPendingQueue {
	return &RedisPendingQueue{client: client}
}

func pendingKey(userID string) string {
	return constants.RedisPrefixPendingProfile + userID
}

// Enqueue stores (or overwrites) the pending entry for a user.
func (queue *RedisPendingQueue) Enqueue(context context.Context, entry *PendingSignup) error {
	if entry.EnqueuedAt.IsZero() {
		entry.EnqueuedAt = time.Now()
	}

	encoded, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("pending_queue_encode_failed: %w", err)
	}

	if err := queue.client.Set(context, pendingKey(entry.UserID), encoded, pendingTTL).Err(); err != nil {
		return fmt.Errorf("pending_queue_write_failed: %w", err)
	}

	return nil
}

// List returns all pending entries, scanning the queue's key prefix.
func (queue *RedisPendingQueue) List(context context.Context) ([]*PendingSignup, error) {
	var entries []*PendingSignup

	iter := queue.client.Scan(context, 0, constants.RedisPrefixPendingProfile+"*", 100).Iterator()
	for iter.Next(context) {
		encoded, err := queue.client.Get(context, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			// Expired between SCAN and GET.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("pending_queue_read_failed: %w", err)
		}

		entry := &PendingSignup{}
		if err := json.Unmarshal(encoded, entry); err != nil {
			return nil, fmt.Errorf("pending_queue_decode_failed: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("pending_queue_scan_failed: %w", err)
	}

	return entries, nil
}

// Remove deletes the entry for a user.
func (queue *RedisPendingQueue) Remove(context context.Context, userID string) error {
	if err := queue.client.Del(context, pendingKey(userID)).Err(); err != nil {
		return fmt.Errorf("pending_queue_delete_failed: %w", err)
	}
	return nil
}
