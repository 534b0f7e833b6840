// Copyright (c) 2026 FarmMarket. All rights reserved.
// Author: dev@farmmarket.az

// Package sec provides security-adjacent primitives for the gateway.
//
// # Scope
//
// Password hashing and token signing are NOT here: both belong to the hosted
// identity provider. This package only derives stable digests from provider
// tokens so they can be used as cache keys without storing the raw token.
package sec

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// HashToken derives a stable hex digest from a provider-issued token.
//
// blake2b-256 is used instead of bcrypt because cache keys must be
// deterministic and lookup-able; the digest only prevents raw tokens from
// landing in Redis keyspace dumps.
func HashToken(token string) string {
	digest := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}
