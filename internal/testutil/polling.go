// Package testutil provides helpers for tests that wait on asynchronous
// state changes.
package testutil

import (
	"context"
	"fmt"
	"time"
)

// Defaults for tests without special timing needs.
const (
	DefaultTimeout  = 5 * time.Second
	DefaultInterval = 10 * time.Millisecond
)

// WaitForState calls getter until predicate accepts its value, ctx is done,
// or timeout elapses. The accepted value is returned.
func WaitForState[T any](ctx context.Context, getter func() T, predicate func(T) bool, timeout, interval time.Duration) (T, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		state := getter()
		if predicate(state) {
			return state, nil
		}

		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-deadline.C:
			var zero T
			return zero, fmt.Errorf("timeout waiting for target state (last %v, threshold: %v)", state, timeout)
		case <-ticker.C:
		}
	}
}

// Poll waits until condition returns true.
func Poll(ctx context.Context, condition func() bool, timeout, interval time.Duration) error {
	_, err := WaitForState(ctx, condition, func(ok bool) bool { return ok }, timeout, interval)
	return err
}
