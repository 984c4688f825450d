// Package purge implements the deletion-orchestration engine: the run state
// machine, the per-target batch loop, cancellation merging, and progress
// fan-out.
package purge

// Target is one unit of deletion work: a sender plus an estimate of how many
// of their messages are pending. Targets are processed in input order.
type Target struct {
	Sender         string
	EstimatedCount int
}

// Status is the run state machine's position.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusPreparing Status = "preparing"
	StatusDeleting  Status = "deleting"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition can leave s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError || s == StatusCancelled
}

// RunState is a snapshot of the single shared run record. The run goroutine
// is its only writer; observers read copies through Controller.State.
type RunState struct {
	Status          Status
	ProgressPercent int
	TotalEstimate   int
	Processed       int
	CurrentTarget   string
	Err             string
	ETA             string
}
