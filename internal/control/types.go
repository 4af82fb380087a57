// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package control exposes a local HTTP API for driving a running capctl
// daemon, plus the client the CLI uses to talk to it.
package control

import (
	"fmt"
	"time"

	"github.com/ManuGH/capctl/internal/health"
	"github.com/ManuGH/capctl/internal/history"
	"github.com/ManuGH/capctl/internal/jobs"
	"github.com/ManuGH/capctl/internal/recording"
	"github.com/ManuGH/capctl/internal/workflow"
)

// RunRequest customizes one workflow or recording run.
type RunRequest struct {
	// Duration is a Go duration string, e.g. "30s".
	Duration string `json:"duration,omitempty"`
	// Region is "x,y,width,height".
	Region    string `json:"region,omitempty"`
	FilePath  string `json:"file_path,omitempty"`
	Text      string `json:"text,omitempty"`
	IndexRoot string `json:"index_root,omitempty"`
}

// Overrides converts the request into workflow overrides.
func (r RunRequest) Overrides() (workflow.Overrides, error) {
	ov := workflow.Overrides{FilePath: r.FilePath, Text: r.Text, IndexRoot: r.IndexRoot}
	if r.Duration != "" {
		d, err := time.ParseDuration(r.Duration)
		if err != nil {
			return ov, fmt.Errorf("duration: %w", err)
		}
		if d < 0 {
			return ov, fmt.Errorf("duration must not be negative")
		}
		ov.Duration = &d
	}
	if r.Region != "" {
		reg, err := recording.ParseRegion(r.Region)
		if err != nil {
			return ov, err
		}
		ov.Region = &reg
	}
	return ov, nil
}

// StartRecordingRequest starts a recording job, optionally from a workflow.
type StartRecordingRequest struct {
	Workflow string `json:"workflow,omitempty"`
	RunRequest
}

// StatusResponse carries the recording status after a controller call.
type StatusResponse struct {
	Status recording.Status `json:"status"`
}

// JobsResponse lists registry jobs oldest first.
type JobsResponse struct {
	Jobs []jobs.Snapshot `json:"jobs"`
}

// HistoryResponse lists history items newest first.
type HistoryResponse struct {
	Items []history.Item `json:"items"`
}

// WorkflowsResponse lists configured workflows.
type WorkflowsResponse struct {
	Workflows []workflow.Definition `json:"workflows"`
}

// HealthResponse is returned by /healthz and /readyz.
type HealthResponse struct {
	health.Response
	Recording bool `json:"recording"`
	Jobs      int  `json:"jobs"`
}
