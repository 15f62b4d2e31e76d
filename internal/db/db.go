// Package db holds the contracts for the optional shared embedding cache.
// The catalog itself is reached through internal/db/postgres.
package db

import (
	"context"
	"time"
)

// Cache is a byte-valued key store with per-key expiry.
// Get reports a missing or expired key as ErrKeyNotFound.
type Cache interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, key string) ([]byte, error)
	// SetWithTTL stores value under key. A non-positive ttl stores without expiry.
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close()
}
