package cache

import (
	"context"
	"time"
)

// Store represents a shared TTL key-value interface used across the
// application: challenge state, rate-limit counters.
type Store interface {
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Take atomically fetches and removes a key. Two concurrent Take calls
	// for the same key must not both observe the value; this is what makes
	// challenge consumption single-use.
	Take(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) error
}
