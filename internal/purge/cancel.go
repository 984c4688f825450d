package purge

import (
	"context"
	"sync"
	"sync/atomic"
)

// Canceller merges independent cancellation triggers into one effective
// signal: a direct Cancel call, the caller's context, and the job-queue
// context all funnel into the same flag. Once set it stays set for the life
// of the run.
type Canceller struct {
	flag atomic.Bool
	done chan struct{}
	once sync.Once
}

// NewCanceller returns a fresh, uncancelled signal.
func NewCanceller() *Canceller {
	return &Canceller{done: make(chan struct{})}
}

// Cancel sets the signal. Safe to call from any goroutine, any number of
// times.
func (c *Canceller) Cancel() {
	c.once.Do(func() {
		c.flag.Store(true)
		close(c.done)
	})
}

// Cancelled reports whether the signal has been set.
func (c *Canceller) Cancelled() bool { return c.flag.Load() }

// Done is closed when the signal is set.
func (c *Canceller) Done() <-chan struct{} { return c.done }

// Watch cancels the signal when ctx ends. The returned stop function
// detaches the watcher; callers must invoke it once the run settles.
func (c *Canceller) Watch(ctx context.Context) (stop func()) {
	stopped := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			c.Cancel()
		case <-c.done:
		case <-stopped:
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(stopped) }) }
}
