// Package cache implements the derived, non-authoritative lookup tiers in
// front of API key storage: a process-local map and an optional distributed
// cache shared by every instance.
//
// Entries are never trusted over storage. Revocation and rotation completion
// invalidate both tiers; if invalidating the distributed tier fails, a stale
// entry may still be served by other instances for at most the configured TTL.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by DistributedCache.Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// DistributedCache is a byte-oriented cache shared across service instances.
type DistributedCache interface {
	// Get returns the stored value or ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key for at most ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
