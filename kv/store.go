package kv

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Get when the key is absent or expired.
	ErrNotFound = errors.New("kv: key not found")
	// ErrUnavailable wraps backend I/O failures.
	ErrUnavailable = errors.New("kv: backend unavailable")
)

// Store is the persistence contract every backend satisfies.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the stored bytes or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set writes value under key. ttl <= 0 stores the key without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes the given keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
	// Incr atomically increments an integer counter and returns the new
	// value. ttl is applied only when the counter is created, which gives
	// fixed-window semantics to rate limiters.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}
