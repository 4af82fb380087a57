// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/capctl/internal/history"
	"github.com/ManuGH/capctl/internal/index"
	"github.com/ManuGH/capctl/internal/notify"
	"github.com/ManuGH/capctl/internal/recording"
)

// Capturer grabs a still image. An empty image with a nil error means the
// user dismissed the capture.
type Capturer interface {
	Capture(ctx context.Context, opts recording.Options) ([]byte, error)
}

// FilePicker asks for a file to upload. "" means the user dismissed it.
type FilePicker interface {
	PickFile(ctx context.Context) (string, error)
}

// FolderIndexer writes a folder index.
type FolderIndexer interface {
	Index(ctx context.Context, s index.Settings) (index.Result, error)
}

// Recorder is the part of the recording controller a job drives. Every call
// after StartRecording names the job's own session.
type Recorder interface {
	StartRecording(ctx context.Context, opts recording.Options) (recording.StartedEvent, error)
	StopSession(ctx context.Context, sessionID string) (string, error)
	AbortSession(ctx context.Context, sessionID string) error
	WaitForStopSignal(ctx context.Context, sessionID string) (recording.StopReason, error)
	SignalStopSession(sessionID string) bool
}

// VideoConverter turns a finished recording into a GIF.
type VideoConverter interface {
	ToGIF(ctx context.Context, input string) (string, error)
}

// HistorySink persists artifact metadata.
type HistorySink interface {
	AppendHistoryItem(ctx context.Context, item history.Item) error
}

// RetryPolicy controls history write retries on storage-busy errors.
type RetryPolicy struct {
	Attempts int
	// Backoff is multiplied by the attempt number.
	Backoff time.Duration
}

// DefaultRetryPolicy retries three times with 100ms linear backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Backoff: 100 * time.Millisecond}
}

// Deps are the collaborators shared by all jobs of a process.
type Deps struct {
	Capturer   Capturer
	FilePicker FilePicker
	Indexer    FolderIndexer
	Recorder   Recorder
	Converter  VideoConverter

	AfterCapture map[Task]Processor
	AfterUpload  map[Task]Processor

	History       HistorySink
	HistoryRetry  RetryPolicy
	IsStorageBusy func(error) bool

	Notifier notify.Notifier
	Logger   zerolog.Logger
	Now      func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Deps) retryPolicy() RetryPolicy {
	p := d.HistoryRetry
	if p.Attempts <= 0 {
		p.Attempts = DefaultRetryPolicy().Attempts
	}
	if p.Backoff <= 0 {
		p.Backoff = DefaultRetryPolicy().Backoff
	}
	return p
}

func (d *Deps) isStorageBusy(err error) bool {
	if d.IsStorageBusy != nil {
		return d.IsStorageBusy(err)
	}
	return history.IsStorageBusy(err)
}
