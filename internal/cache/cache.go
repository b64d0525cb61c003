// Package cache provides the TTL-bounded key-value store that backs task
// control state. Two implementations exist: an in-process store with lazy
// expiry and snapshot persistence, and a Redis-backed store that delegates
// expiry to the server. Both satisfy Store and are interchangeable.
package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a key is absent or every value under it
	// has expired. Absence and expiry are indistinguishable to callers.
	ErrNotFound = errors.New("cache: key not found")

	// ErrInvalidTTL is returned by Set when ttl is not positive.
	ErrInvalidTTL = errors.New("cache: ttl must be positive")
)

// Store abstracts ephemeral expiring key-value state.
// Implementations: in-memory (single instance) or Redis (external service).
type Store interface {
	// Get returns the live value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, expiring after ttl.
	// A ttl <= 0 fails with ErrInvalidTTL; use SetForever for no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetForever stores value under key with no expiry.
	SetForever(ctx context.Context, key string, value []byte) error

	// Delete removes key. Returns ErrNotFound if no live value exists.
	Delete(ctx context.Context, key string) error

	// Flush removes every entry.
	Flush(ctx context.Context) error

	// Len reports the number of live entries. Expiry is detected lazily,
	// so the count is a hint, not a gauge.
	Len(ctx context.Context) (int, error)
}
