// Package queue exposes long-running operations to a generic job runner. The
// runner owns its own registration table; nothing hangs off ambient global
// state.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Result is the structured outcome of a job. Executors never fail with a Go
// error: success, cancellation, and runtime failure all resolve as a Result
// so the runner's handling stays uniform across job types.
type Result struct {
	Success bool
	// Cancelled marks a deliberate stop. Cancelled results carry an Err
	// message for display but are not failures.
	Cancelled bool
	Processed int
	Err       string
}

// Progress is pushed to the job submitter's sink as work advances.
type Progress struct {
	Processed int
	Total     int
	Percent   int
}

// Executor runs one job. ctx is the job's abort token.
type Executor func(ctx context.Context, payload any, onProgress func(Progress)) Result

// Runner maps job-type names to executors. Register everything during
// startup; Execute may then be called from any goroutine.
type Runner struct {
	mu        sync.Mutex
	executors map[string]Executor
	log       *slog.Logger
}

// NewRunner returns an empty runner.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{executors: make(map[string]Executor), log: logger}
}

// Register binds a job-type name to its executor. Registering the same name
// twice is a wiring bug and fails loudly.
func (r *Runner) Register(name string, exec Executor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.executors[name]; exists {
		return fmt.Errorf("job type %q already registered", name)
	}
	if exec == nil {
		return fmt.Errorf("job type %q: executor must not be nil", name)
	}
	r.executors[name] = exec
	return nil
}

// Execute runs the named job to completion and returns its structured result.
func (r *Runner) Execute(ctx context.Context, name string, payload any, onProgress func(Progress)) Result {
	r.mu.Lock()
	exec, ok := r.executors[name]
	r.mu.Unlock()
	if !ok {
		return Result{Err: fmt.Sprintf("unknown job type %q", name)}
	}
	r.log.InfoContext(ctx, "job started", "type", name)
	result := exec(ctx, payload, onProgress)
	r.log.InfoContext(ctx, "job finished",
		"type", name, "success", result.Success, "processed", result.Processed)
	return result
}
