// Package provider defines the storage abstraction behind every named cache.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly the
// same []byte that was previously passed to Set for a key (no prepended/appended
// metadata, no re-encoding, no mutation).
//
// Keys handed to a provider are already scoped as "<partition>:<segment>:<id>"
// by the owning client. Several clients may share one provider as long as their
// partitions differ.
package provider

import (
	"context"
	"time"
)

// DefaultPartition is the partition label applied when a cache config leaves it empty.
const DefaultPartition = "methodcache"

// Provider is a minimal byte store with TTLs.
// Must be safe for concurrent use.
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL. May ignore cost if unsupported.
	// Returns ok=false when the store rejected the write under pressure.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// Del removes a key (best-effort).
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}

// Starter is implemented by providers that need a start step (connectivity
// check, background janitor) before serving traffic.
type Starter interface {
	Start(ctx context.Context) error
}

// Settings are handed to a Factory when a cache is provisioned.
type Settings struct {
	// Partition isolates this cache's keys from other caches on the same store.
	Partition string
}

// Factory builds a new provider for a named cache.
type Factory func(s Settings) (Provider, error)
