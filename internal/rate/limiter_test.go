package rate

import (
	"context"
	"testing"
	"time"
)

func TestIntervalFirstCallImmediate(t *testing.T) {
	iv := NewInterval(time.Hour)
	defer iv.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := iv.Wait(ctx); err != nil {
		t.Fatalf("first wait should not block: %v", err)
	}
}

func TestIntervalWaitHonorsContext(t *testing.T) {
	iv := NewInterval(time.Hour)
	defer iv.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = iv.Wait(ctx) // consume the initial slot

	ctx2, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	if err := iv.Wait(ctx2); err == nil {
		t.Fatal("expected context error while slot unavailable")
	}
}

func TestNonePassesThrough(t *testing.T) {
	if err := (None{}).Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (None{}).Wait(ctx); err == nil {
		t.Fatal("expected canceled context error")
	}
}
