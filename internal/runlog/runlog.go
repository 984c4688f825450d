// Package runlog records the before/after state of every deletion run.
package runlog

import (
	"context"
	"time"
)

// EndType classifies how a run finished.
type EndType string

const (
	EndSuccess      EndType = "success"
	EndUserStopped  EndType = "user_stopped"
	EndRuntimeError EndType = "runtime_error"
)

// TypeDelete is the only entry type this engine writes.
const TypeDelete = "delete"

// Entry is one run's log record. It is created before any external call is
// made, updated with cumulative progress after each batch, and completed
// exactly once with a terminal end type.
type Entry struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	EstimatedCount int       `json:"estimated_count"`
	Processed      int       `json:"processed"`
	EndType        EndType   `json:"end_type,omitempty"`
	Error          string    `json:"error,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	EndedAt        time.Time `json:"ended_at,omitzero"`
}

// Open reports whether the entry has not been completed yet.
func (e Entry) Open() bool { return e.EndType == "" }

// Store is the write surface shared by the durable and the local log.
type Store interface {
	// Create persists a new open entry and returns its ID.
	Create(ctx context.Context, entry Entry) (string, error)
	// UpdateProgress records the cumulative processed count.
	UpdateProgress(ctx context.Context, id string, processed int) error
	// Complete finalizes the entry. Completing an already completed entry
	// is an error.
	Complete(ctx context.Context, id string, end EndType, processed int, errMsg string) error
}
