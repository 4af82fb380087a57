// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package effects implements the after-capture and after-upload processors
// a job runs on its artifact.
package effects

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ManuGH/capctl/internal/jobs"
	"github.com/ManuGH/capctl/internal/notify"
)

// Uploader is the destination used by the upload task.
type Uploader interface {
	UploadFile(ctx context.Context, path string) (string, error)
	UploadBytes(ctx context.Context, name string, data []byte) (string, error)
	UploadText(ctx context.Context, name, text string) (string, error)
}

// Set wires the processors from their collaborators. Nil collaborators leave
// the matching task unset, which jobs report as a warning when requested.
type Set struct {
	SaveDir   string
	Clipboard *Clipboard
	Uploader  Uploader
	Notifier  notify.Notifier
	Logger    zerolog.Logger
}

// AfterCapture returns the after-capture processors.
func (s Set) AfterCapture() map[jobs.Task]jobs.Processor {
	m := map[jobs.Task]jobs.Processor{}
	if s.SaveDir != "" {
		m[jobs.TaskSaveToFile] = SaveToFile{Dir: s.SaveDir, Logger: s.Logger}
	}
	if s.Clipboard != nil {
		m[jobs.TaskCopyToClipboard] = CopyArtifact{Clipboard: s.Clipboard}
	}
	if s.Uploader != nil {
		m[jobs.TaskUpload] = Upload{Uploader: s.Uploader, Logger: s.Logger}
	}
	return m
}

// AfterUpload returns the after-upload processors.
func (s Set) AfterUpload() map[jobs.Task]jobs.Processor {
	m := map[jobs.Task]jobs.Processor{}
	if s.Clipboard != nil {
		m[jobs.TaskCopyURL] = CopyURL{Clipboard: s.Clipboard}
	}
	if s.Notifier != nil {
		m[jobs.TaskNotifyURL] = NotifyURL{Notifier: s.Notifier}
	}
	return m
}
