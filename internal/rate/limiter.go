package rate

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Limiter gates outbound API calls so deletion runs respect Gmail quota.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Interval releases one call per fixed interval. It smooths the call rate
// between message batches without ever bursting.
type Interval struct {
	ticker   *time.Ticker
	tokens   chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

// NewInterval returns a limiter that admits one call every d. Non-positive
// intervals are clamped to one millisecond.
func NewInterval(d time.Duration) *Interval {
	if d <= 0 {
		d = time.Millisecond
	}
	iv := &Interval{
		ticker: time.NewTicker(d),
		tokens: make(chan struct{}, 1),
		stop:   make(chan struct{}),
	}
	// the first call proceeds immediately
	iv.tokens <- struct{}{}
	go iv.run()
	return iv
}

// NewPerSecond returns a limiter admitting rps calls per second.
func NewPerSecond(rps int) *Interval {
	if rps <= 0 {
		rps = 1
	}
	return NewInterval(time.Second / time.Duration(rps))
}

func (iv *Interval) run() {
	for {
		select {
		case <-iv.stop:
			return
		case <-iv.ticker.C:
			select {
			case iv.tokens <- struct{}{}:
			default:
			}
		}
	}
}

// Wait blocks until a slot is available or the context is canceled.
func (iv *Interval) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("rate wait canceled: %w", ctx.Err())
	case <-iv.tokens:
		return nil
	}
}

// Stop releases the limiter's ticker goroutine. Safe to call more than once.
func (iv *Interval) Stop() {
	iv.stopOnce.Do(func() {
		iv.ticker.Stop()
		close(iv.stop)
	})
}

// None is a pass-through limiter for tests and dry runs.
type None struct{}

func (None) Wait(ctx context.Context) error {
	return ctx.Err()
}

var (
	_ Limiter = (*Interval)(nil)
	_ Limiter = None{}
)
