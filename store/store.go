// Package store defines the key-value backend contract, its implementations,
// and the Adapter that turns backend faults into typed errors.
package store

import "context"

// Backend is the interface that all backing stores must implement. Keys and
// values are plain strings; a key that does not exist is reported through
// ok=false and is never an error.
//
// Implementations may fail, and the Adapter also tolerates implementations
// that panic. Callers outside this package should go through an Adapter.
type Backend interface {
	// Name returns a short identifier used in error messages ("memory", "json", "sqlite").
	Name() string

	// Get returns the value stored under key. ok is false if the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set inserts or replaces the value stored under key.
	Set(ctx context.Context, key, value string) error

	// Keys returns every stored key in ascending order.
	Keys(ctx context.Context) ([]string, error)

	// Close releases any resources held by the backend.
	Close() error
}
