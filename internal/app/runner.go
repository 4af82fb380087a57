// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package app

import (
	"context"
	"fmt"

	"github.com/ManuGH/capctl/internal/control"
	"github.com/ManuGH/capctl/internal/jobs"
	"github.com/ManuGH/capctl/internal/recording"
	"github.com/ManuGH/capctl/internal/workflow"
)

// RunWorkflow starts the workflow id on the process context.
func (a *App) RunWorkflow(id string, ov workflow.Overrides) (*jobs.Job, error) {
	def, err := a.catalog.Get(id)
	if err != nil {
		return nil, err
	}
	return a.start(def, ov)
}

// RunRecording starts an ad-hoc recording with the configured defaults.
func (a *App) RunRecording(ov workflow.Overrides) (*jobs.Job, error) {
	if a.recorder.IsRecording() {
		return nil, recording.ErrAlreadyRecording
	}
	return a.start(workflow.Definition{Kind: string(jobs.KindRecording)}, ov)
}

func (a *App) start(def workflow.Definition, ov workflow.Overrides) (*jobs.Job, error) {
	if a.isStopping() {
		return nil, ErrShutdown
	}
	a.mu.RLock()
	defaults := a.defaults
	a.mu.RUnlock()

	settings, err := def.Settings(defaults, ov)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", control.ErrBadRequest, err)
	}
	return a.registry.Run(a.baseCtx, settings)
}

// RunLocal runs workflow id in this process and waits for it. Cancelling ctx
// stops the job; a recording is stopped gracefully and keeps its output.
func (a *App) RunLocal(ctx context.Context, id string, ov workflow.Overrides) (jobs.Snapshot, error) {
	job, err := a.RunWorkflow(id, ov)
	if err != nil {
		return jobs.Snapshot{}, err
	}
	select {
	case <-job.Done():
	case <-ctx.Done():
		if sid := job.Snapshot().SessionID; job.Kind() == jobs.KindRecording && sid != "" {
			a.recorder.SignalStopSession(sid)
		} else {
			job.Stop()
		}
		<-job.Done()
	}
	return job.Snapshot(), nil
}
