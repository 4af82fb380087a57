// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package jobs

// Status is the lifecycle state of a Job.
//
//	InQueue -> Preparing -> Working -> (Stopping) -> Completed | Failed | Stopped
//	InQueue -> Canceled
type Status string

const (
	StatusInQueue   Status = "in_queue"
	StatusPreparing Status = "preparing"
	StatusWorking   Status = "working"
	StatusStopping  Status = "stopping"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusStopped   Status = "stopped"
	StatusCanceled  Status = "canceled"
)

// IsBusy reports whether the job is running its pipeline.
func (s Status) IsBusy() bool {
	switch s {
	case StatusPreparing, StatusWorking, StatusStopping:
		return true
	}
	return false
}

// IsTerminal reports whether the job reached a final state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusStopped, StatusCanceled:
		return true
	}
	return false
}
