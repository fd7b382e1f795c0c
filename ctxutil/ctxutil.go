// Copyright (c) 2023 BVK Chaitanya

package ctxutil

import (
	"context"
	"time"
)

// Sleep blocks the caller for given timeout duration. Returns the context
// cause if the input context is canceled before the timeout.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-timer.C:
		return nil
	}
}

// Retry runs the input function till it succeeds or till the input context is
// canceled. Returns nil if the input function is successful or last non-nil
// error from the function after the context has expired.
func Retry(ctx context.Context, interval time.Duration, f func() error) (err error) {
	for err = f(); err != nil && context.Cause(ctx) == nil; err = f() {
		Sleep(ctx, interval)
	}
	return
}

// RetryTimeout is like Retry, but gives up after the input timeout.
func RetryTimeout(ctx context.Context, interval, timeout time.Duration, f func() error) error {
	sctx, scancel := context.WithTimeout(ctx, timeout)
	defer scancel()
	return Retry(sctx, interval, f)
}
