// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package recording

import "errors"

var (
	// ErrAlreadyRecording is returned by StartRecording while a session is open.
	ErrAlreadyRecording = errors.New("recording already in progress")
	// ErrNotRecording is returned when no session is open.
	ErrNotRecording = errors.New("no active recording")
	// ErrNotPaused is returned by ResumeRecording when the session is running.
	ErrNotPaused = errors.New("recording is not paused")
	// ErrBusy is returned while another transition of the session is in flight.
	ErrBusy = errors.New("recording session is busy")
	// ErrAborted is returned when a session was discarded by AbortRecording.
	ErrAborted = errors.New("recording aborted")
	// ErrMissingOutput means the backend stopped without leaving a file behind.
	ErrMissingOutput = errors.New("recording produced no output file")
	// ErrCapabilityUnavailable marks native backend failures that justify the fallback backend.
	ErrCapabilityUnavailable = errors.New("capture capability unavailable")
)

// IsCapabilityError reports whether err means the backend cannot run on this
// platform or configuration, as opposed to failing while running.
func IsCapabilityError(err error) bool {
	return errors.Is(err, ErrCapabilityUnavailable) || errors.Is(err, errors.ErrUnsupported)
}
