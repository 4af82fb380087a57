// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/capctl/internal/fsutil"
	"github.com/ManuGH/capctl/internal/index"
	xglog "github.com/ManuGH/capctl/internal/log"
	"github.com/ManuGH/capctl/internal/metrics"
	"github.com/ManuGH/capctl/internal/notify"
	"github.com/ManuGH/capctl/internal/recording"
)

const nameTimeLayout = "2006-01-02_15-04-05"

var errNoProcessor = errors.New("no processor configured")

func (j *Job) pipeline(ctx context.Context) (Result, error) {
	art := &Artifact{
		JobID:     j.id,
		Kind:      j.settings.Kind,
		CreatedAt: j.deps.now(),
	}

	var err error
	switch j.settings.Kind {
	case KindScreenshot:
		err = j.captureScreenshot(ctx, art)
	case KindRecording:
		err = j.captureRecording(ctx, art)
	case KindFileUpload:
		err = j.resolveFile(ctx, art)
	case KindTextUpload:
		err = j.resolveText(art)
	case KindIndexFolder:
		err = j.indexFolder(ctx, art)
	default:
		err = fmt.Errorf("unknown job kind %q", j.settings.Kind)
	}
	if err != nil {
		return Result{}, err
	}
	if !art.hasInput() {
		return Result{}, ErrNoInput
	}
	j.enterWorking()

	j.runTasks(ctx, art, j.settings.AfterCapture.Tasks(), j.deps.AfterCapture)
	if art.URL != "" {
		j.runTasks(ctx, art, j.settings.AfterUpload.Tasks(), j.deps.AfterUpload)
	}

	// The artifact exists; bookkeeping completes even if a stop arrives now.
	j.recordHistory(context.WithoutCancel(ctx), art)

	if err := ctx.Err(); err != nil {
		return art.Result, err
	}
	return art.Result, nil
}

func (j *Job) captureScreenshot(ctx context.Context, art *Artifact) error {
	if j.deps.Capturer == nil {
		return errors.New("no screen capturer configured")
	}
	if d := j.settings.Delay; d > 0 {
		t := time.NewTimer(d)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}
	j.enterWorking()

	img, err := j.deps.Capturer.Capture(ctx, j.settings.Capture)
	if err != nil {
		return fmt.Errorf("capture screenshot: %w", err)
	}
	art.Image = img
	art.Name = fmt.Sprintf("Screenshot_%s.png", art.CreatedAt.Format(nameTimeLayout))
	return nil
}

func (j *Job) captureRecording(ctx context.Context, art *Artifact) error {
	rec := j.deps.Recorder
	if rec == nil {
		return errors.New("no recorder configured")
	}

	started, err := rec.StartRecording(ctx, j.settings.Capture)
	if err != nil {
		return fmt.Errorf("start recording: %w", err)
	}
	j.markRecordingStarted(started.SessionID)
	j.enterWorking()
	ctx = xglog.ContextWithSessionID(ctx, started.SessionID)
	logger := j.log.With().Str(xglog.FieldSessionID, started.SessionID).Logger()
	if started.UsingFallback {
		logger.Info().Str(xglog.FieldBackend, string(started.Backend)).Msg("recording uses fallback backend")
	}

	sessionID := started.SessionID
	var timer *time.Timer
	if d := j.settings.Recording.Duration; d > 0 {
		timer = time.AfterFunc(d, func() { rec.SignalStopSession(sessionID) })
	}
	reason, err := rec.WaitForStopSignal(ctx, sessionID)
	if timer != nil {
		timer.Stop()
	}
	if err != nil {
		if aerr := rec.AbortSession(context.WithoutCancel(ctx), sessionID); aerr != nil && !errors.Is(aerr, recording.ErrNotRecording) {
			logger.Warn().Err(aerr).Msg("abort after job cancellation failed")
		}
		return err
	}
	if reason == recording.StopAborted {
		return fmt.Errorf("recording aborted: %w", ErrNoInput)
	}

	path, err := rec.StopSession(context.WithoutCancel(ctx), sessionID)
	switch {
	case errors.Is(err, recording.ErrAborted), errors.Is(err, recording.ErrNotRecording):
		return fmt.Errorf("recording ended without output: %w", ErrNoInput)
	case err != nil:
		return fmt.Errorf("stop recording: %w", err)
	}
	if reason == recording.StopBackendFailed {
		j.addWarning("recording backend failed; kept the footage captured so far")
	}
	if path == "" {
		return ErrNoInput
	}
	art.FilePath = path
	art.Name = filepath.Base(path)

	if j.settings.Recording.ExportGIF {
		j.exportGIF(ctx, art, logger)
	}
	return nil
}

// exportGIF swaps the artifact to a GIF. Failures keep the video.
func (j *Job) exportGIF(ctx context.Context, art *Artifact, logger zerolog.Logger) {
	if j.deps.Converter == nil {
		j.taskFailed(ctx, "export_gif", errNoProcessor)
		return
	}
	gif, err := j.deps.Converter.ToGIF(ctx, art.FilePath)
	if err != nil {
		j.taskFailed(ctx, "export_gif", err)
		return
	}
	if !j.settings.Recording.KeepSource {
		if err := fsutil.RemoveIfExists(art.FilePath); err != nil {
			logger.Warn().Err(err).Str(xglog.FieldPath, art.FilePath).Msg("failed to remove source video")
		}
	}
	art.FilePath = gif
	art.Name = filepath.Base(gif)
}

func (j *Job) resolveFile(ctx context.Context, art *Artifact) error {
	path := j.settings.FilePath
	if path == "" {
		if j.deps.FilePicker == nil {
			return fmt.Errorf("no file given and no picker configured: %w", ErrNoInput)
		}
		picked, err := j.deps.FilePicker.PickFile(ctx)
		if err != nil {
			return fmt.Errorf("pick file: %w", err)
		}
		if picked == "" {
			return ErrNoInput
		}
		path = picked
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("upload source: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("upload source %s is a directory", path)
	}
	art.FilePath = path
	art.Name = filepath.Base(path)
	return nil
}

func (j *Job) resolveText(art *Artifact) error {
	if strings.TrimSpace(j.settings.Text) == "" {
		return ErrNoInput
	}
	art.Text = j.settings.Text
	art.Name = fmt.Sprintf("Text_%s.txt", art.CreatedAt.Format(nameTimeLayout))
	return nil
}

func (j *Job) indexFolder(ctx context.Context, art *Artifact) error {
	if j.deps.Indexer == nil {
		return errors.New("no folder indexer configured")
	}
	j.enterWorking()
	res, err := j.deps.Indexer.Index(ctx, j.settings.Index)
	if errors.Is(err, index.ErrEmptyFolder) {
		return fmt.Errorf("%w: %w", ErrNoInput, err)
	}
	if err != nil {
		return fmt.Errorf("index folder: %w", err)
	}
	art.FilePath = res.Path
	art.Text = res.Text
	art.Name = filepath.Base(res.Path)
	return nil
}

// runTasks executes side effects in order. A failing task never fails the job.
func (j *Job) runTasks(ctx context.Context, art *Artifact, tasks []Task, procs map[Task]Processor) {
	for _, task := range tasks {
		p := procs[task]
		if p == nil {
			j.taskFailed(ctx, string(task), errNoProcessor)
			continue
		}
		if err := p.Process(ctx, art); err != nil {
			j.taskFailed(ctx, string(task), err)
		}
	}
}

func (j *Job) taskFailed(ctx context.Context, task string, err error) {
	j.addWarning(fmt.Sprintf("%s: %v", task, err))
	metrics.JobSideEffectFailures.WithLabelValues(task).Inc()
	j.log.Warn().Err(err).Str("task", task).Msg("job side effect failed")
	j.notify(ctx, notify.Message{
		Title: fmt.Sprintf("%s failed", strings.ReplaceAll(task, "_", " ")),
		Text:  err.Error(),
		Level: notify.LevelWarn,
	})
}
