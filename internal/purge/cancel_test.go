package purge

import (
	"context"
	"testing"
	"time"
)

func TestCancellerMergesDirectCancel(t *testing.T) {
	c := NewCanceller()
	if c.Cancelled() {
		t.Fatal("fresh canceller must not be cancelled")
	}
	c.Cancel()
	c.Cancel() // idempotent
	if !c.Cancelled() {
		t.Fatal("cancel did not set the flag")
	}
	select {
	case <-c.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestCancellerWatchContext(t *testing.T) {
	c := NewCanceller()
	ctx, cancel := context.WithCancel(context.Background())
	stop := c.Watch(ctx)
	defer stop()

	cancel()
	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("context cancellation did not propagate")
	}
}

func TestCancellerWatchDetaches(t *testing.T) {
	c := NewCanceller()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := c.Watch(ctx)
	stop()
	stop() // detaching twice is fine

	cancel()
	time.Sleep(20 * time.Millisecond)
	if c.Cancelled() {
		t.Fatal("detached watcher must not cancel the signal")
	}
}
