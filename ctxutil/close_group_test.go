// Copyright (c) 2023 BVK Chaitanya

package ctxutil

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

func TestCloseGroup(t *testing.T) {
	var cg CloseGroup

	var count atomic.Int64
	for i := 0; i < 100; i++ {
		cg.Go(func(ctx context.Context) {
			<-ctx.Done()
			count.Add(1)
		})
	}

	cg.Close()
	if v := count.Load(); v != 100 {
		t.Fatalf("want 100 goroutines to finish, got %d", v)
	}
	if !errors.Is(context.Cause(cg.Context()), os.ErrClosed) {
		t.Fatalf("want os.ErrClosed as the cause, got %v", context.Cause(cg.Context()))
	}
}

func TestCloseGroupTicker(t *testing.T) {
	var cg CloseGroup

	var ticks atomic.Int64
	cg.Ticker(time.Millisecond, func(context.Context) { ticks.Add(1) })

	time.Sleep(50 * time.Millisecond)
	cg.Cancel(os.ErrClosed)
	cg.Wait()

	if !cg.Done() {
		t.Fatalf("want close group to be canceled")
	}
	if ticks.Load() == 0 {
		t.Fatalf("want ticker to run at least once")
	}

	last := ticks.Load()
	time.Sleep(10 * time.Millisecond)
	if v := ticks.Load(); v != last {
		t.Fatalf("ticker is still running after cancel: %d != %d", v, last)
	}
}

func TestSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if err := Sleep(context.Background(), time.Millisecond); err != nil {
		t.Fatal(err)
	}
}
