// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package procgroup runs external encoder processes as leaders of their own
// process group, so a stop reaches every child they spawned.
package procgroup

import (
	"context"
	"os/exec"
	"time"

	"github.com/ManuGH/capctl/internal/metrics"
)

// Signal is a portable stop request mapped to the platform signal.
type Signal int

const (
	SignalTerm Signal = iota
	SignalKill
)

func (s Signal) String() string {
	if s == SignalKill {
		return "SIGKILL"
	}
	return "SIGTERM"
}

// Outcome tells how Escalate ended a process.
type Outcome string

const (
	// OutcomeExited means the process was gone before any signal was sent.
	OutcomeExited     Outcome = "exited"
	OutcomeTerminated Outcome = "terminated"
	OutcomeKilled     Outcome = "killed"
)

// Escalate stops the group led by cmd. exited must close once cmd.Wait has
// returned. SIGTERM goes first; SIGKILL follows after grace, or at once when
// ctx ends. Escalate returns only after the process was reaped.
func Escalate(ctx context.Context, cmd *exec.Cmd, exited <-chan struct{}, grace time.Duration) Outcome {
	if cmd == nil || cmd.Process == nil {
		return OutcomeExited
	}
	select {
	case <-exited:
		metrics.IncProcWait(string(OutcomeExited))
		return OutcomeExited
	default:
	}

	send(cmd, SignalTerm)
	timer := time.NewTimer(grace)
	defer timer.Stop()

	outcome := OutcomeTerminated
	select {
	case <-exited:
	case <-timer.C:
		outcome = OutcomeKilled
	case <-ctx.Done():
		outcome = OutcomeKilled
	}
	if outcome == OutcomeKilled {
		send(cmd, SignalKill)
		<-exited
	}
	metrics.IncProcWait(string(outcome))
	return outcome
}

// KillOnCancel returns an exec.Cmd Cancel hook that kills the whole group
// instead of only the leader.
func KillOnCancel(cmd *exec.Cmd) func() error {
	return func() error { return SignalGroup(cmd, SignalKill) }
}

func send(cmd *exec.Cmd, sig Signal) {
	result := "sent"
	if err := SignalGroup(cmd, sig); err != nil {
		result = "error"
	}
	metrics.IncProcTerminate(sig.String(), result)
}
