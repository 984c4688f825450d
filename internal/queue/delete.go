package queue

import (
	"context"

	"github.com/joshsymonds/mailpurge/internal/gmail"
	"github.com/joshsymonds/mailpurge/internal/purge"
)

// JobDelete is the job-type name for bulk deletion runs.
const JobDelete = "delete"

// DeletePayload is the job payload for JobDelete.
type DeletePayload struct {
	Targets  []purge.Target
	Rules    *gmail.Rules
	PageSize int
}

// RegisterDelete binds the deletion controller to the runner. The executor
// wires the job context into the run's cancellation signal, forwards progress
// to the submitter's sink, and resolves once the controller publishes its
// terminal state. The abort watcher is detached when the run settles.
func RegisterDelete(runner *Runner, ctrl *purge.Controller) error {
	exec := func(ctx context.Context, payload any, onProgress func(Progress)) Result {
		req, ok := payload.(DeletePayload)
		if !ok {
			return Result{Err: "delete job: payload must be a DeletePayload"}
		}

		opts := purge.Options{
			Rules:    req.Rules,
			PageSize: req.PageSize,
			OnProgress: func(u purge.Update) {
				if onProgress != nil {
					onProgress(Progress{Processed: u.Processed, Total: u.Total, Percent: u.Percent})
				}
			},
		}
		run, err := ctrl.Start(ctx, req.Targets, opts)
		if err != nil {
			return Result{Err: err.Error()}
		}

		// completion is signalled by the controller, not polled
		<-run.Done()
		state := ctrl.State()
		switch state.Status {
		case purge.StatusCompleted:
			return Result{Success: true, Processed: state.Processed}
		case purge.StatusCancelled:
			return Result{Cancelled: true, Processed: state.Processed, Err: "run cancelled"}
		default:
			return Result{Processed: state.Processed, Err: state.Err}
		}
	}
	return runner.Register(JobDelete, exec)
}
