package purge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/joshsymonds/mailpurge/internal/gmail"
	"github.com/joshsymonds/mailpurge/internal/rate"
	"github.com/joshsymonds/mailpurge/internal/runlog"
	"github.com/joshsymonds/mailpurge/internal/token"
)

const (
	// smallEstimateMax is the total estimate at or below which the run is
	// delayed briefly before starting, so tiny runs don't flash through
	// every state faster than an observer can follow.
	smallEstimateMax = 5
	smoothingDelay   = 400 * time.Millisecond

	durableCreateRetries = 3
)

// HandledMarker records that a deletion run was taken against a sender.
type HandledMarker interface {
	Mark(ctx context.Context, sender string) error
}

// Config wires a Controller's collaborators.
type Config struct {
	Client  gmail.Client
	Guard   *token.Guard
	Limiter rate.Limiter
	Durable runlog.Store
	Local   runlog.Store
	// Handled is optional; failures to mark never abort a run.
	Handled   HandledMarker
	Estimator Estimator
	Notifier  Notifier
	Logger    *slog.Logger
	// Account is the authenticated mailbox owner. Empty fails validation.
	Account string
	Clock   func() time.Time
	// RetryPolicy builds the backoff for durable-log creation.
	RetryPolicy func() backoff.BackOff
}

// Options tunes a single run.
type Options struct {
	Rules      *gmail.Rules
	PageSize   int
	OnProgress Sink
}

// Controller owns the run state machine. It sequences the batch processor
// across targets in input order, drives both logs, and publishes one terminal
// state per run. At most one run is active per controller.
type Controller struct {
	client    gmail.Client
	guard     *token.Guard
	limiter   rate.Limiter
	durable   runlog.Store
	local     runlog.Store
	handled   HandledMarker
	estimator Estimator
	notifier  Notifier
	log       *slog.Logger
	account   string
	clock     func() time.Time
	sleep     func(ctx context.Context, d time.Duration)
	retry     func() backoff.BackOff

	mu        sync.Mutex
	state     RunState
	active    bool
	finalized bool
	canceller *Canceller
	reporter  *Reporter
	localID   string
	durableID string
	done      chan struct{}
	stopWatch func()
	reauth    atomic.Bool
}

// NewController constructs a Controller in the idle state.
func NewController(cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = LogNotifier{Log: logger}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	retry := cfg.RetryPolicy
	if retry == nil {
		retry = func() backoff.BackOff {
			return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), durableCreateRetries)
		}
	}
	return &Controller{
		client:    cfg.Client,
		guard:     cfg.Guard,
		limiter:   cfg.Limiter,
		durable:   cfg.Durable,
		local:     cfg.Local,
		handled:   cfg.Handled,
		estimator: cfg.Estimator,
		notifier:  notifier,
		log:       logger,
		account:   cfg.Account,
		clock:     clock,
		sleep:     sleepCtx,
		retry:     retry,
		state:     RunState{Status: StatusIdle},
	}
}

// Run is the handle for one started run.
type Run struct {
	done <-chan struct{}
	c    *Controller
}

// Done is closed once the run reaches a terminal state, after both logs have
// been finalized.
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until the run settles or ctx ends, returning the final state.
func (r *Run) Wait(ctx context.Context) (RunState, error) {
	select {
	case <-ctx.Done():
		return r.c.State(), ctx.Err()
	case <-r.done:
		return r.c.State(), nil
	}
}

// Start validates preconditions, checks credentials, and spawns the run. It
// returns as soon as the run is accepted; all further work is observed
// through State, the progress sink, and the returned handle. ctx doubles as
// the caller's abort token: when it ends the run is cancelled cooperatively.
func (c *Controller) Start(ctx context.Context, targets []Target, opts Options) (*Run, error) {
	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return nil, ErrRunActive
	}
	if err := c.validate(targets); err != nil {
		// validation failures leave the previous state untouched
		c.mu.Unlock()
		return nil, err
	}

	total := 0
	for _, target := range targets {
		if target.EstimatedCount > 0 {
			total += target.EstimatedCount
		}
	}
	c.active = true
	c.finalized = false
	c.reauth.Store(false)
	c.canceller = NewCanceller()
	c.reporter = NewReporter(total, c.estimator)
	c.localID, c.durableID = "", ""
	c.done = make(chan struct{})
	c.stopWatch = nil
	c.state = RunState{Status: StatusPreparing, TotalEstimate: total}
	canceller := c.canceller
	reporter := c.reporter
	done := c.done
	c.mu.Unlock()

	// auth failures surface synchronously, before any log is created
	if _, err := c.guard.Fresh(ctx); err != nil {
		c.reauth.Store(true)
		c.notifier.AuthRequired()
		c.finalize(done, StatusError, runlog.EndRuntimeError, err.Error())
		return nil, err
	}

	reporter.AddSink(c.stateSink(done))
	reporter.AddSink(opts.OnProgress)

	c.mu.Lock()
	c.stopWatch = canceller.Watch(ctx)
	c.mu.Unlock()

	c.log.InfoContext(ctx, "deletion run accepted",
		"account", c.account, "targets", len(targets), "estimate", total)
	go c.run(targets, opts, canceller, reporter, total, done)
	return &Run{done: done, c: c}, nil
}

// Cancel requests cooperative cancellation and finalizes the run with the
// processed count known right now. Idempotent; a no-op once the run has
// reached a terminal state.
func (c *Controller) Cancel() {
	c.mu.Lock()
	if !c.active || c.finalized {
		c.mu.Unlock()
		return
	}
	canceller := c.canceller
	done := c.done
	c.mu.Unlock()

	canceller.Cancel()
	c.finalize(done, StatusCancelled, runlog.EndUserStopped, "")
}

// State returns a snapshot of the shared run record.
func (c *Controller) State() RunState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ReauthRequired reports whether the last run failed on credentials.
func (c *Controller) ReauthRequired() bool { return c.reauth.Load() }

// validate is called with c.mu held.
func (c *Controller) validate(targets []Target) error {
	if c.account == "" {
		return &ValidationError{Reason: "no authenticated account"}
	}
	if len(targets) == 0 {
		return &ValidationError{Reason: "no targets supplied"}
	}
	if c.client == nil || !c.client.Ready() {
		return &ValidationError{Reason: "message store client not ready"}
	}
	return nil
}

// run is the background task. Cancellation is cooperative: network calls run
// on a detached context and finish even after a cancel request, so the run
// context is never the caller's. done doubles as the run's identity: once the
// controller has moved on to another run, this goroutine may no longer touch
// shared state.
func (c *Controller) run(targets []Target, opts Options, canceller *Canceller, reporter *Reporter, total int, done chan struct{}) {
	ctx := context.Background()

	if total <= smallEstimateMax {
		c.sleep(ctx, smoothingDelay)
	}
	if canceller.Cancelled() {
		c.finalize(done, StatusCancelled, runlog.EndUserStopped, "")
		return
	}

	entry := runlog.Entry{
		Type:           runlog.TypeDelete,
		EstimatedCount: total,
		StartedAt:      c.clock(),
	}
	localID, err := c.local.Create(ctx, entry)
	if err != nil {
		c.finalize(done, StatusError, runlog.EndRuntimeError, fmt.Sprintf("create local log: %v", err))
		return
	}
	if !c.stillCurrent(done, func() { c.localID = localID }) {
		return
	}

	durableID, err := c.createDurable(ctx, entry)
	if err != nil {
		c.finalize(done, StatusError, runlog.EndRuntimeError, err.Error())
		return
	}
	if !c.stillCurrent(done, func() {
		c.durableID = durableID
		c.state.Status = StatusDeleting
	}) {
		return
	}

	proc := &batchProcessor{
		client:   c.client,
		guard:    c.guard,
		limiter:  c.limiter,
		rules:    opts.Rules,
		pageSize: opts.PageSize,
		log:      c.log,
	}
	onBatch := func(deleted int, morePages bool) {
		reporter.Record(deleted, morePages)
	}

	for _, target := range targets {
		if canceller.Cancelled() {
			c.finalize(done, StatusCancelled, runlog.EndUserStopped, "")
			return
		}
		reporter.SetTarget(target.Sender)
		c.stillCurrent(done, func() { c.state.CurrentTarget = target.Sender })

		runErr := proc.run(ctx, target, canceller, onBatch)
		switch {
		case runErr == nil:
			c.markHandled(ctx, target.Sender)
		case errors.Is(runErr, errCancelled):
			c.finalize(done, StatusCancelled, runlog.EndUserStopped, "")
			return
		default:
			var authErr *token.AuthError
			if errors.As(runErr, &authErr) {
				c.reauth.Store(true)
				c.notifier.AuthRequired()
			}
			// fail fast: one target's failure aborts the whole run
			c.finalize(done, StatusError, runlog.EndRuntimeError, runErr.Error())
			return
		}
	}
	c.finalize(done, StatusCompleted, runlog.EndSuccess, "")
}

// stillCurrent runs apply under the lock if done still identifies the
// controller's current, unfinalized run. A stale goroutine from a cancelled
// run gets false and must stop touching shared state.
func (c *Controller) stillCurrent(done chan struct{}, apply func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finalized || c.done != done {
		return false
	}
	apply()
	return true
}

// finalize closes both logs and publishes the terminal state, exactly once
// per run. The durable log is completed before the terminal state becomes
// observable, so no observer ever sees a finished run with an open log.
// done identifies the run being finalized; a call carrying a superseded run's
// channel is a no-op so a stale goroutine can never finalize its successor.
func (c *Controller) finalize(done chan struct{}, status Status, end runlog.EndType, errMsg string) {
	c.mu.Lock()
	if c.finalized || c.done != done {
		c.mu.Unlock()
		return
	}
	c.finalized = true
	processed := c.state.Processed
	localID, durableID := c.localID, c.durableID
	stop := c.stopWatch
	c.mu.Unlock()

	ctx := context.Background()
	if durableID != "" {
		if err := c.durable.Complete(ctx, durableID, end, processed, errMsg); err != nil {
			c.log.Error("complete durable log", "id", durableID, "error", err)
		}
	}
	if localID != "" {
		if err := c.local.Complete(ctx, localID, end, processed, errMsg); err != nil {
			c.log.Error("complete local log", "id", localID, "error", err)
		}
	}

	c.mu.Lock()
	c.state.Status = status
	c.state.Err = errMsg
	c.state.ETA = ""
	c.state.CurrentTarget = ""
	if status == StatusCompleted {
		c.state.ProgressPercent = 100
	}
	c.active = false
	c.mu.Unlock()
	close(done)
	if stop != nil {
		stop()
	}

	switch status {
	case StatusCompleted:
		c.notifier.RunCompleted(processed)
	case StatusCancelled:
		c.notifier.RunCancelled(processed)
	case StatusError:
		c.notifier.RunFailed(errMsg)
	}
	c.log.Info("deletion run finished",
		"status", string(status), "end_type", string(end), "processed", processed)
}

func (c *Controller) createDurable(ctx context.Context, entry runlog.Entry) (string, error) {
	var id string
	op := func() error {
		var err error
		id, err = c.durable.Create(ctx, entry)
		return err
	}
	if err := backoff.Retry(op, c.retry()); err != nil {
		return "", fmt.Errorf("create durable log entry: %w", err)
	}
	return id, nil
}

// stateSink keeps the shared run record in step with the reporter. The sink
// is bound to one run; once that run is finalized or superseded it goes
// quiet.
func (c *Controller) stateSink(done chan struct{}) Sink {
	return func(u Update) {
		c.mu.Lock()
		if c.finalized || c.done != done {
			c.mu.Unlock()
			return
		}
		c.state.Processed = u.Processed
		c.state.ProgressPercent = u.Percent
		c.state.ETA = u.ETA
		localID, durableID := c.localID, c.durableID
		c.mu.Unlock()

		ctx := context.Background()
		if localID != "" {
			_ = c.local.UpdateProgress(ctx, localID, u.Processed)
		}
		if durableID != "" {
			if err := c.durable.UpdateProgress(ctx, durableID, u.Processed); err != nil {
				c.log.Warn("durable progress update failed", "id", durableID, "error", err)
			}
		}
	}
}

func (c *Controller) markHandled(ctx context.Context, sender string) {
	if c.handled == nil {
		return
	}
	if err := c.handled.Mark(ctx, sender); err != nil {
		c.log.Warn("mark sender handled", "sender", sender, "error", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
