// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package jobs

import (
	"context"
	"time"
)

// Result is what a job produced.
type Result struct {
	Image    []byte `json:"-"`
	FilePath string `json:"file_path,omitempty"`
	Text     string `json:"text,omitempty"`
	URL      string `json:"url,omitempty"`
}

// HasArtifact reports whether the result counts as a successful output.
func (r Result) HasArtifact() bool {
	return len(r.Image) > 0 || r.FilePath != "" || r.URL != ""
}

func (r Result) hasInput() bool {
	return len(r.Image) > 0 || r.FilePath != "" || r.Text != ""
}

// Artifact is the mutable working copy processors operate on.
type Artifact struct {
	Result

	JobID     string
	Kind      Kind
	Name      string
	CreatedAt time.Time
}

// Processor runs one side effect on an artifact and may update it, for
// example by setting FilePath after saving or URL after uploading.
type Processor interface {
	Process(ctx context.Context, art *Artifact) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, art *Artifact) error

func (f ProcessorFunc) Process(ctx context.Context, art *Artifact) error { return f(ctx, art) }
