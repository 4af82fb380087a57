// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package recording

import "time"

// Status is the user-visible state of a recording session.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusStarting   Status = "starting"
	StatusRecording  Status = "recording"
	StatusPaused     Status = "paused"
	StatusFinalizing Status = "finalizing"
	StatusCompleted  Status = "completed"
	StatusAborted    Status = "aborted"
	StatusFailed     Status = "failed"
)

// StartedEvent is published once a session's first segment is running.
type StartedEvent struct {
	SessionID     string
	Backend       BackendKind
	UsingFallback bool
	OutputPath    string
	Options       Options
	StartedAt     time.Time
}

// CompletedEvent is published once a session was finalized into OutputPath.
type CompletedEvent struct {
	SessionID  string
	OutputPath string
	Segments   int
	Duration   time.Duration
}

// Observer is notified synchronously about session changes.
// Implementations must return quickly.
type Observer interface {
	RecordingStarted(ev StartedEvent)
	RecordingStatusChanged(sessionID string, status Status)
	RecordingCompleted(ev CompletedEvent)
	RecordingError(sessionID string, err error)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	OnStarted   func(StartedEvent)
	OnStatus    func(sessionID string, status Status)
	OnCompleted func(CompletedEvent)
	OnError     func(sessionID string, err error)
}

func (f ObserverFuncs) RecordingStarted(ev StartedEvent) {
	if f.OnStarted != nil {
		f.OnStarted(ev)
	}
}

func (f ObserverFuncs) RecordingStatusChanged(sessionID string, status Status) {
	if f.OnStatus != nil {
		f.OnStatus(sessionID, status)
	}
}

func (f ObserverFuncs) RecordingCompleted(ev CompletedEvent) {
	if f.OnCompleted != nil {
		f.OnCompleted(ev)
	}
}

func (f ObserverFuncs) RecordingError(sessionID string, err error) {
	if f.OnError != nil {
		f.OnError(sessionID, err)
	}
}
