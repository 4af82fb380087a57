// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package jobs runs capture jobs: one pipeline per job, from input
// resolution through side effects to history bookkeeping.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	xglog "github.com/ManuGH/capctl/internal/log"
	"github.com/ManuGH/capctl/internal/metrics"
	"github.com/ManuGH/capctl/internal/notify"
	"github.com/ManuGH/capctl/internal/telemetry"
)

var tracer = telemetry.Tracer("capctl/jobs")

// lifecycle receives start and completion callbacks. The registry installs itself here.
type lifecycle interface {
	jobStarted(j *Job)
	jobCompleted(j *Job)
}

// Job is one unit of capture work.
type Job struct {
	id        string
	settings  Settings
	deps      *Deps
	log       zerolog.Logger
	createdAt time.Time

	mu            sync.Mutex
	status        Status
	result        Result
	err           error
	warnings      []string
	successful    bool
	disposed      bool
	cancel        context.CancelFunc
	startedAt     time.Time
	finishedAt    time.Time
	sessionID     string
	hooks         lifecycle
	stopRequested bool

	done       chan struct{}
	recStarted chan struct{}
	recOnce    sync.Once
}

// New creates a queued job.
func New(settings Settings, deps *Deps) (*Job, error) {
	if deps == nil {
		return nil, errors.New("jobs: deps are required")
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid job settings: %w", err)
	}
	settings = settings.normalized()
	id := uuid.NewString()
	ev := deps.Logger.With().
		Str(xglog.FieldComponent, "jobs").
		Str(xglog.FieldJobID, id).
		Str(xglog.FieldJobKind, string(settings.Kind))
	if settings.Workflow != "" {
		ev = ev.Str(xglog.FieldWorkflow, settings.Workflow)
	}
	return &Job{
		id:         id,
		settings:   settings,
		deps:       deps,
		log:        ev.Logger(),
		createdAt:  deps.now(),
		status:     StatusInQueue,
		done:       make(chan struct{}),
		recStarted: make(chan struct{}),
	}, nil
}

func (j *Job) ID() string         { return j.id }
func (j *Job) Kind() Kind         { return j.settings.Kind }
func (j *Job) Settings() Settings { return j.settings }

// Status returns the current status.
func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// Result returns what the job produced so far.
func (j *Job) Result() Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// Err returns the error the job finished with, if any.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Warnings returns messages of side effects that failed without failing the job.
func (j *Job) Warnings() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.warnings...)
}

// IsSuccessful is fixed when the job finishes: Completed with an artifact.
func (j *Job) IsSuccessful() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.successful
}

// Done is closed once the job reached a terminal status and listeners were told.
func (j *Job) Done() <-chan struct{} { return j.done }

// RecordingStarted is closed once the recorder accepted the start of a recording job.
func (j *Job) RecordingStarted() <-chan struct{} { return j.recStarted }

// Wait blocks until the job is terminal or ctx ends.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start launches the pipeline in the background. Only an InQueue job can start.
func (j *Job) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.status != StatusInQueue {
		st := j.status
		j.mu.Unlock()
		return fmt.Errorf("%w: cannot start job in status %s", ErrInvalidState, st)
	}
	runCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.startedAt = j.deps.now()
	j.setStatusLocked(StatusPreparing)
	hooks := j.hooks
	j.mu.Unlock()

	if hooks != nil {
		hooks.jobStarted(j)
	}
	go j.run(runCtx)
	return nil
}

// Stop requests cancellation of a running job. It is a no-op unless the job is busy.
func (j *Job) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.status.IsBusy() || j.stopRequested {
		return
	}
	j.stopRequested = true
	j.setStatusLocked(StatusStopping)
	j.cancel()
}

// Cancel moves a queued job straight to Canceled. It reports whether it did.
func (j *Job) Cancel() bool {
	j.mu.Lock()
	if j.status != StatusInQueue {
		j.mu.Unlock()
		return false
	}
	j.err = ErrCanceled
	j.finishedAt = j.deps.now()
	j.setStatusLocked(StatusCanceled)
	hooks := j.hooks
	j.mu.Unlock()

	metrics.ObserveJob(string(j.settings.Kind), string(StatusCanceled), 0)
	if hooks != nil {
		hooks.jobCompleted(j)
	}
	close(j.done)
	return true
}

// Dispose releases the in-memory artifact. Safe to call more than once.
func (j *Job) Dispose() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.disposed = true
	j.result.Image = nil
}

func (j *Job) setHooks(h lifecycle) {
	j.mu.Lock()
	j.hooks = h
	j.mu.Unlock()
}

func (j *Job) setStatusLocked(s Status) {
	if j.status == s {
		return
	}
	j.log.Debug().
		Str(xglog.FieldOldState, string(j.status)).
		Str(xglog.FieldNewState, string(s)).
		Msg("job state change")
	j.status = s
}

// enterWorking moves Preparing to Working once input is being produced.
func (j *Job) enterWorking() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status == StatusPreparing {
		j.setStatusLocked(StatusWorking)
	}
}

func (j *Job) markRecordingStarted(sessionID string) {
	j.mu.Lock()
	j.sessionID = sessionID
	j.mu.Unlock()
	j.recOnce.Do(func() { close(j.recStarted) })
}

func (j *Job) run(ctx context.Context) {
	ctx = xglog.ContextWithJobID(ctx, j.id)
	ctx, span := tracer.Start(ctx, "job.run",
		trace.WithAttributes(telemetry.JobAttributes(j.id, string(j.settings.Kind))...))
	defer span.End()

	res, err := j.execute(ctx)
	j.finish(ctx, span, res, err)
}

func (j *Job) execute(ctx context.Context) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			j.log.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("job pipeline panicked")
			res = Result{}
			err = fmt.Errorf("job pipeline panic: %v", r)
		}
	}()
	return j.pipeline(ctx)
}

func (j *Job) finish(ctx context.Context, span trace.Span, res Result, err error) {
	status := StatusCompleted
	switch {
	case err == nil:
	case errors.Is(err, ErrNoInput), errors.Is(err, context.Canceled), ctx.Err() != nil:
		status = StatusStopped
	default:
		status = StatusFailed
	}

	j.mu.Lock()
	if j.disposed {
		res.Image = nil
	}
	j.result = res
	j.err = err
	j.successful = status == StatusCompleted && res.HasArtifact()
	j.finishedAt = j.deps.now()
	elapsed := j.finishedAt.Sub(j.startedAt)
	j.setStatusLocked(status)
	hooks := j.hooks
	j.mu.Unlock()

	metrics.ObserveJob(string(j.settings.Kind), string(status), elapsed)
	span.SetAttributes(attribute.String(telemetry.JobStatusKey, string(status)))

	switch status {
	case StatusFailed:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		j.log.Error().Err(err).Dur("elapsed", elapsed).Msg("job failed")
		j.notify(ctx, notify.Message{
			Title: fmt.Sprintf("%s failed", j.settings.Kind),
			Text:  err.Error(),
			Level: notify.LevelError,
		})
	case StatusStopped:
		j.log.Info().AnErr("reason", err).Dur("elapsed", elapsed).Msg("job stopped")
	default:
		j.log.Info().
			Str(xglog.FieldPath, res.FilePath).
			Str(xglog.FieldURL, res.URL).
			Dur("elapsed", elapsed).
			Msg("job completed")
	}

	if hooks != nil {
		hooks.jobCompleted(j)
	}
	close(j.done)
}

func (j *Job) addWarning(msg string) {
	j.mu.Lock()
	j.warnings = append(j.warnings, msg)
	j.mu.Unlock()
}

func (j *Job) notify(ctx context.Context, msg notify.Message) {
	if j.deps.Notifier == nil {
		return
	}
	j.deps.Notifier.Notify(context.WithoutCancel(ctx), msg)
}

// Snapshot is a point-in-time view of a job.
type Snapshot struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Workflow   string    `json:"workflow,omitempty"`
	Status     Status    `json:"status"`
	Successful bool      `json:"successful"`
	Error      string    `json:"error,omitempty"`
	Warnings   []string  `json:"warnings,omitempty"`
	Result     Result    `json:"result"`
	HasImage   bool      `json:"has_image"`
	SessionID  string    `json:"session_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	StartedAt  time.Time `json:"started_at,omitzero"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}

// Snapshot returns a copy of the job's observable state.
func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	s := Snapshot{
		ID:         j.id,
		Kind:       j.settings.Kind,
		Workflow:   j.settings.Workflow,
		Status:     j.status,
		Successful: j.successful,
		Warnings:   append([]string(nil), j.warnings...),
		Result:     j.result,
		HasImage:   len(j.result.Image) > 0,
		SessionID:  j.sessionID,
		CreatedAt:  j.createdAt,
		StartedAt:  j.startedAt,
		FinishedAt: j.finishedAt,
	}
	s.Result.Image = nil
	if j.err != nil {
		s.Error = j.err.Error()
	}
	return s
}
