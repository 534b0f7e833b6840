// Copyright (c) 2026 FarmMarket. All rights reserved.
// Author: dev@farmmarket.az

package gotrue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/farmmarket/api/internal/identity"
	"github.com/farmmarket/api/internal/platform/constants"
	"github.com/farmmarket/api/internal/platform/sec"
)

// # Redis Session Cache

// RedisSessionCache persists the current session snapshot in Redis so the
// resting state survives a process restart.
//
// Two keys are used: a pointer key holding the digest of the refresh token,
// and a digest-addressed key holding the session JSON. Raw tokens never
// appear in the keyspace, so SCAN output stays free of credentials.
type RedisSessionCache struct {
	client *redis.Client
}

// NewRedisSessionCache creates a session cache on the given Redis client.
func NewRedisSessionCache(client *redis.Client) *RedisSessionCache {
	return &RedisSessionCache{client: client}
}

// currentKey points at the digest of the active session.
func (cache *RedisSessionCache) currentKey() string {
	return constants.RedisPrefixSession + "current"
}

// sessionKey addresses a session snapshot by token digest.
func (cache *RedisSessionCache) sessionKey(digest string) string {
	return constants.RedisPrefixSession + digest
}

// Save stores the snapshot. The TTL follows the session expiry so stale
// snapshots age out on their own; sessions without an expiry get a day.
func (cache *RedisSessionCache) Save(context context.Context, session *identity.Session) error {
	encoded, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("session_cache_encode_failed: %w", err)
	}

	ttl := 24 * time.Hour
	if !session.ExpiresAt.IsZero() {
		if remaining := time.Until(session.ExpiresAt); remaining > 0 {
			ttl = remaining
		}
	}

	digest := sec.HashToken(session.RefreshToken)

	pipe := cache.client.TxPipeline()
	pipe.Set(context, cache.sessionKey(digest), encoded, ttl)
	pipe.Set(context, cache.currentKey(), digest, ttl)
	if _, err := pipe.Exec(context); err != nil {
		return fmt.Errorf("session_cache_write_failed: %w", err)
	}

	return nil
}

// Load returns the stored snapshot, or nil when none exists.
func (cache *RedisSessionCache) Load(context context.Context) (*identity.Session, error) {
	digest, err := cache.client.Get(context, cache.currentKey()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session_cache_read_failed: %w", err)
	}

	encoded, err := cache.client.Get(context, cache.sessionKey(digest)).Bytes()
	if errors.Is(err, redis.Nil) {
		// Pointer outlived the snapshot. Clean it up.
		_ = cache.client.Del(context, cache.currentKey()).Err()
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session_cache_read_failed: %w", err)
	}

	session := &identity.Session{}
	if err := json.Unmarshal(encoded, session); err != nil {
		return nil, fmt.Errorf("session_cache_decode_failed: %w", err)
	}

	return session, nil
}

// Clear removes the stored snapshot and its pointer.
func (cache *RedisSessionCache) Clear(context context.Context) error {
	digest, err := cache.client.Get(context, cache.currentKey()).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("session_cache_read_failed: %w", err)
	}

	if err := cache.client.Del(context, cache.currentKey(), cache.sessionKey(digest)).Err(); err != nil {
		return fmt.Errorf("session_cache_delete_failed: %w", err)
	}

	return nil
}
