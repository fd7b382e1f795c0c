// Copyright (c) 2023 BVK Chaitanya

package ctxutil

import (
	"context"
	"log/slog"
	"os"
	"runtime/debug"
	"sync"
	"time"
)

// CloseGroup owns a set of goroutines and timers that share one cancelation
// context. Canceling the group stops all of them together; Close also waits
// for the goroutines to return.
//
// Zero value is ready to use.
type CloseGroup struct {
	closeCtx  context.Context
	causeFunc context.CancelCauseFunc

	wg sync.WaitGroup

	once sync.Once
}

func (cg *CloseGroup) init() {
	cg.closeCtx, cg.causeFunc = context.WithCancelCause(context.Background())
}

// Close cancels the group with os.ErrClosed and waits for all goroutines. It
// must not be called from a goroutine owned by the group.
func (cg *CloseGroup) Close() {
	cg.Cancel(os.ErrClosed)
	cg.wg.Wait()
}

// Cancel cancels the group context without waiting for the goroutines. It is
// safe to call from a goroutine owned by the group.
func (cg *CloseGroup) Cancel(cause error) {
	cg.once.Do(cg.init)
	cg.causeFunc(cause)
}

// Wait blocks till all goroutines started by the group return.
func (cg *CloseGroup) Wait() {
	cg.wg.Wait()
}

// Context returns the group's context.
func (cg *CloseGroup) Context() context.Context {
	cg.once.Do(cg.init)
	return cg.closeCtx
}

// Done returns true if the group is canceled.
func (cg *CloseGroup) Done() bool {
	return cg.Context().Err() != nil
}

// Go runs the function in a new goroutine that is tracked by the group.
func (cg *CloseGroup) Go(f func(ctx context.Context)) {
	cg.once.Do(cg.init)

	cg.wg.Add(1)
	go func() {
		defer cg.wg.Done()

		defer func() {
			if r := recover(); r != nil {
				slog.Error("CAUGHT PANIC", "panic", r)
				slog.Error(string(debug.Stack()))
				panic(r)
			}
		}()

		f(cg.closeCtx)
	}()
}

// Ticker runs the function periodically at the given interval till the group
// is canceled. The first call happens after one interval.
func (cg *CloseGroup) Ticker(interval time.Duration, f func(ctx context.Context)) {
	cg.Go(func(ctx context.Context) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				f(ctx)
			}
		}
	})
}
