package domain

import (
	"context"
	"time"
)

// CounterStore is a key-value store with expiry semantics backing the rate
// limiter. Any store with TTLs satisfies it: in-memory map, SQLite, Redis.
type CounterStore interface {
	// Get returns the current value for key, or 0 when absent or expired.
	Get(ctx context.Context, key string) (int, error)
	// Set stores value under key with the given time-to-live. Overwriting an
	// existing key replaces both value and TTL.
	Set(ctx context.Context, key string, value int, ttl time.Duration) error
	// RemainingTTL returns the time left before key expires. It returns a
	// negative duration when the key is absent or the TTL cannot be
	// determined.
	RemainingTTL(ctx context.Context, key string) (time.Duration, error)
}
