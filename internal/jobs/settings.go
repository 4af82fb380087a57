// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package jobs

import (
	"fmt"
	"strings"
	"time"

	"github.com/ManuGH/capctl/internal/index"
	"github.com/ManuGH/capctl/internal/recording"
)

// Kind selects the pipeline variant of a job.
type Kind string

const (
	KindScreenshot  Kind = "screenshot"
	KindRecording   Kind = "recording"
	KindFileUpload  Kind = "file_upload"
	KindTextUpload  Kind = "text_upload"
	KindIndexFolder Kind = "index_folder"
)

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindScreenshot, KindRecording, KindFileUpload, KindTextUpload, KindIndexFolder:
		return k, nil
	}
	return "", fmt.Errorf("unknown job kind %q", s)
}

// Task names one side effect.
type Task string

const (
	TaskSaveToFile      Task = "save_to_file"
	TaskCopyToClipboard Task = "copy_to_clipboard"
	TaskUpload          Task = "upload"
	TaskCopyURL         Task = "copy_url"
	TaskNotifyURL       Task = "notify_url"
)

// AfterCaptureTasks is the set of tasks run on the captured artifact.
type AfterCaptureTasks uint8

const (
	AfterCaptureSaveToFile AfterCaptureTasks = 1 << iota
	AfterCaptureCopyToClipboard
	AfterCaptureUpload
)

// AfterUploadTasks is the set of tasks run once an upload URL exists.
type AfterUploadTasks uint8

const (
	AfterUploadCopyURL AfterUploadTasks = 1 << iota
	AfterUploadNotifyURL
)

var afterCaptureOrder = []struct {
	flag AfterCaptureTasks
	task Task
}{
	{AfterCaptureSaveToFile, TaskSaveToFile},
	{AfterCaptureCopyToClipboard, TaskCopyToClipboard},
	{AfterCaptureUpload, TaskUpload},
}

var afterUploadOrder = []struct {
	flag AfterUploadTasks
	task Task
}{
	{AfterUploadCopyURL, TaskCopyURL},
	{AfterUploadNotifyURL, TaskNotifyURL},
}

// Has reports whether all tasks in t are set.
func (s AfterCaptureTasks) Has(t AfterCaptureTasks) bool { return s&t == t }

// Has reports whether all tasks in t are set.
func (s AfterUploadTasks) Has(t AfterUploadTasks) bool { return s&t == t }

// Tasks lists the enabled tasks in execution order.
func (s AfterCaptureTasks) Tasks() []Task {
	var out []Task
	for _, o := range afterCaptureOrder {
		if s.Has(o.flag) {
			out = append(out, o.task)
		}
	}
	return out
}

// Tasks lists the enabled tasks in execution order.
func (s AfterUploadTasks) Tasks() []Task {
	var out []Task
	for _, o := range afterUploadOrder {
		if s.Has(o.flag) {
			out = append(out, o.task)
		}
	}
	return out
}

// ParseAfterCaptureTasks converts task names into a flag set.
func ParseAfterCaptureTasks(names []string) (AfterCaptureTasks, error) {
	var set AfterCaptureTasks
	for _, n := range names {
		found := false
		for _, o := range afterCaptureOrder {
			if string(o.task) == strings.TrimSpace(n) {
				set |= o.flag
				found = true
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown after-capture task %q", n)
		}
	}
	return set, nil
}

// ParseAfterUploadTasks converts task names into a flag set.
func ParseAfterUploadTasks(names []string) (AfterUploadTasks, error) {
	var set AfterUploadTasks
	for _, n := range names {
		found := false
		for _, o := range afterUploadOrder {
			if string(o.task) == strings.TrimSpace(n) {
				set |= o.flag
				found = true
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown after-upload task %q", n)
		}
	}
	return set, nil
}

// RecordingSettings holds recording-only job options.
type RecordingSettings struct {
	// Duration stops the recording automatically. Zero waits for a stop signal.
	Duration time.Duration
	// ExportGIF re-encodes the final video into a GIF.
	ExportGIF bool
	// KeepSource keeps the video next to the exported GIF.
	KeepSource bool
}

// Settings fully describes a job. Kind selects which of the other fields apply.
type Settings struct {
	Kind     Kind
	Workflow string

	// Capture is used by screenshot and recording jobs.
	Capture recording.Options
	// Delay postpones a screenshot.
	Delay     time.Duration
	Recording RecordingSettings

	// FilePath is the file to upload. Empty asks the FilePicker.
	FilePath string
	Text     string
	Index    index.Settings

	AfterCapture AfterCaptureTasks
	AfterUpload  AfterUploadTasks
	SkipHistory  bool
}

// Validate checks that settings are complete for their kind.
func (s Settings) Validate() error {
	if _, err := ParseKind(string(s.Kind)); err != nil {
		return err
	}
	if s.Delay < 0 || s.Recording.Duration < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	switch s.Kind {
	case KindScreenshot, KindRecording:
		opts := s.Capture
		if opts.Mode == "" {
			opts.Mode = recording.ModeScreen
		}
		return opts.Validate()
	case KindIndexFolder:
		if s.Index.Root == "" {
			return fmt.Errorf("index job requires a root folder")
		}
	}
	return nil
}

func (s Settings) normalized() Settings {
	if s.Capture.Mode == "" {
		s.Capture.Mode = recording.ModeScreen
	}
	// Upload jobs exist to upload.
	if s.Kind == KindFileUpload || s.Kind == KindTextUpload {
		s.AfterCapture |= AfterCaptureUpload
	}
	s.Capture = s.Capture.Clone()
	return s
}
