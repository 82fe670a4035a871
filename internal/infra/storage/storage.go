// Package storage defines the durable key-value substrate the write
// queue persists through. The interface is deliberately narrow so the
// queue can run against an in-memory fake in tests and against redis or
// postgres in production.
package storage

import "context"

// KV is a minimal durable key-value store.
type KV interface {
	// Get returns the value for key, or (nil, nil) when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key, replacing any prior value.
	Set(ctx context.Context, key string, value []byte) error
}
