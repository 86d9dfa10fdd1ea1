package store

import (
	"context"
	"fmt"
)

// Adapter wraps a Backend so that every failure, including a panic inside
// the backend, comes back as a *Error. Absent keys are not failures.
//
// The Adapter adds no caching and no retries. It is safe for concurrent use
// if the Backend is.
type Adapter struct {
	backend Backend
}

// NewAdapter wraps b.
func NewAdapter(b Backend) *Adapter {
	return &Adapter{backend: b}
}

// Name returns the wrapped backend's name.
func (a *Adapter) Name() string {
	return a.backend.Name()
}

// Get returns the value stored under key, or Absent.
func (a *Adapter) Get(ctx context.Context, key string) (Value, error) {
	var v Value
	err := a.call(ctx, "get", key, func() error {
		raw, ok, err := a.backend.Get(ctx, key)
		if err != nil {
			return err
		}
		if ok {
			v = Present(raw)
		}
		return nil
	})
	if err != nil {
		return Absent, err
	}
	return v, nil
}

// Set stores value under key.
func (a *Adapter) Set(ctx context.Context, key, value string) error {
	return a.call(ctx, "set", key, func() error {
		return a.backend.Set(ctx, key, value)
	})
}

// Keys lists every stored key in ascending order.
func (a *Adapter) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := a.call(ctx, "keys", "", func() error {
		var err error
		keys, err = a.backend.Keys(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}

// Close closes the wrapped backend.
func (a *Adapter) Close() error {
	return a.call(context.Background(), "close", "", a.backend.Close)
}

func (a *Adapter) call(ctx context.Context, op, key string, fn func() error) (err error) {
	if cerr := ctx.Err(); cerr != nil {
		return a.wrap(op, key, cerr)
	}
	defer func() {
		if r := recover(); r != nil {
			err = a.wrap(op, key, fmt.Errorf("panic: %v", r))
		}
	}()
	if ferr := fn(); ferr != nil {
		return a.wrap(op, key, ferr)
	}
	return nil
}

func (a *Adapter) wrap(op, key string, cause error) error {
	return &Error{Backend: a.backend.Name(), Op: op, Key: key, Cause: cause}
}
