// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package recording

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/capctl/internal/fsutil"
	xglog "github.com/ManuGH/capctl/internal/log"
	"github.com/ManuGH/capctl/internal/metrics"
	"github.com/ManuGH/capctl/internal/telemetry"
)

const (
	defaultFlushTimeout = 2 * time.Second
	defaultFlushPoll    = 50 * time.Millisecond
	cleanupTimeout      = 10 * time.Second
	maxEndedGates       = 16
)

// Concatenator joins ordered segment files into output using the given muxer format.
type Concatenator interface {
	Concat(ctx context.Context, segments []string, output, format string) error
}

// ControllerConfig wires a Controller. Fallback is required; Native may be nil
// when the platform has no native capture.
type ControllerConfig struct {
	RecordingsDir string
	Native        BackendFactory
	Fallback      BackendFactory
	Concat        Concatenator
	ForceFallback bool

	// FlushTimeout bounds the wait for a segment file to appear after Stop.
	FlushTimeout time.Duration
	FlushPoll    time.Duration

	Logger zerolog.Logger
	Now    func() time.Time
}

type phase int

const (
	phaseIdle phase = iota
	phaseStarting
	phaseRecording
	phasePausing
	phasePaused
	phaseResuming
	phaseStopping
	phaseFinalizing
	phaseAborting
)

func (p phase) String() string {
	switch p {
	case phaseIdle:
		return "idle"
	case phaseStarting:
		return "starting"
	case phaseRecording:
		return "recording"
	case phasePausing:
		return "pausing"
	case phasePaused:
		return "paused"
	case phaseResuming:
		return "resuming"
	case phaseStopping:
		return "stopping"
	case phaseFinalizing:
		return "finalizing"
	case phaseAborting:
		return "aborting"
	}
	return "unknown"
}

func (p phase) status() Status {
	switch p {
	case phaseStarting, phaseResuming:
		return StatusStarting
	case phaseRecording:
		return StatusRecording
	case phasePausing, phasePaused:
		return StatusPaused
	case phaseStopping, phaseFinalizing, phaseAborting:
		return StatusFinalizing
	}
	return StatusIdle
}

// State is a point-in-time snapshot of the controller.
type State struct {
	SessionID  string      `json:"session_id,omitempty"`
	Status     Status      `json:"status"`
	Backend    BackendKind `json:"backend,omitempty"`
	Paused     bool        `json:"paused"`
	Segments   int         `json:"segments"`
	OutputPath string      `json:"output_path,omitempty"`
	StartedAt  time.Time   `json:"started_at,omitzero"`
}

// Controller owns at most one recording session and its single live backend.
// All state lives behind mu; backend Start/Stop and file I/O run outside it
// after the phase change was committed.
type Controller struct {
	cfg    ControllerConfig
	log    zerolog.Logger
	tracer trace.Tracer

	mu             sync.Mutex
	phase          phase
	sessionID      string
	backend        Backend
	backendKind    BackendKind
	generation     uint64
	current        Options
	resume         Options
	finalPath      string
	finalExisted   bool
	segments       []string
	segmentIndex   int
	paused         bool
	abortRequested bool
	gate           *stopGate
	gates          map[string]*stopGate
	endedGates     []string
	startedAt      time.Time
	observers      []Observer
}

// NewController validates cfg and returns an idle controller.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if cfg.Fallback == nil {
		return nil, errors.New("recording: fallback backend factory is required")
	}
	if cfg.RecordingsDir == "" {
		return nil, errors.New("recording: recordings directory is required")
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = defaultFlushTimeout
	}
	if cfg.FlushPoll <= 0 {
		cfg.FlushPoll = defaultFlushPoll
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Controller{
		cfg:    cfg,
		log:    cfg.Logger.With().Str(xglog.FieldComponent, "recording").Logger(),
		tracer: telemetry.Tracer("capctl/recording"),
	}, nil
}

// AddObserver registers o for all future session events.
func (c *Controller) AddObserver(o Observer) {
	if o == nil {
		return
	}
	c.mu.Lock()
	c.observers = append(c.observers, o)
	c.mu.Unlock()
}

// ShouldForceFallback reports whether opts must skip the native backend and why.
func (c *Controller) ShouldForceFallback(opts Options) (bool, string) {
	switch {
	case opts.Encoder.WantsAudio():
		return true, "audio"
	case !opts.UseNativeCapture:
		return true, "native_disabled"
	case c.cfg.Native == nil:
		return true, "native_unavailable"
	case opts.Encoder.ForceFallback || c.cfg.ForceFallback:
		return true, "forced"
	}
	return false, ""
}

// StartRecording opens a new session and starts its first segment.
func (c *Controller) StartRecording(ctx context.Context, opts Options) (StartedEvent, error) {
	if opts.Mode == "" {
		opts.Mode = ModeScreen
	}
	if err := opts.Validate(); err != nil {
		return StartedEvent{}, fmt.Errorf("invalid recording options: %w", err)
	}
	opts = opts.Clone()
	finalExisted := opts.OutputPath != "" && fsutil.Exists(opts.OutputPath)

	c.mu.Lock()
	if c.phase != phaseIdle {
		c.mu.Unlock()
		return StartedEvent{}, ErrAlreadyRecording
	}
	if opts.OutputPath == "" {
		opts.OutputPath = DefaultOutputPath(c.cfg.RecordingsDir, opts.Encoder.Codec, c.cfg.Now())
	}
	c.setPhaseLocked(phaseStarting)
	c.sessionID = uuid.NewString()
	c.gate = newStopGate()
	if c.gates == nil {
		c.gates = make(map[string]*stopGate)
	}
	c.gates[c.sessionID] = c.gate
	c.finalPath = opts.OutputPath
	c.finalExisted = finalExisted
	c.resume = opts.Clone()
	if finalExisted {
		// An existing file stays untouched until finalization replaces it.
		opts.OutputPath = partPath(c.finalPath, 0)
	}
	c.current = opts
	c.segments = nil
	c.segmentIndex = 0
	c.paused = false
	c.abortRequested = false
	c.generation++
	gen := c.generation
	sessionID := c.sessionID
	gate := c.gate
	finalPath := c.finalPath
	c.mu.Unlock()

	ctx, span := c.tracer.Start(ctx, "recording.start",
		trace.WithAttributes(telemetry.RecordingAttributes(sessionID, string(opts.Mode), "")...))
	defer span.End()

	logger := c.log.With().Str(xglog.FieldSessionID, sessionID).Str(xglog.FieldPath, finalPath).Logger()
	c.notifyStatus(sessionID, StatusStarting)

	var (
		b    Backend
		kind BackendKind
		err  error
	)
	// #nosec G301
	if mkErr := os.MkdirAll(filepath.Dir(opts.OutputPath), 0o755); mkErr != nil {
		err = fmt.Errorf("create output dir: %w", mkErr)
	} else {
		b, kind, err = c.launch(ctx, gen, opts, logger)
	}

	c.mu.Lock()
	if err != nil {
		c.resetLocked()
		c.mu.Unlock()
		gate.signal(StopBackendFailed)

		span.RecordError(err)
		span.SetStatus(codes.Error, "start failed")
		metrics.IncRecordingOutcome("failed")
		logger.Error().Err(err).Msg("recording start failed")
		c.notifyError(sessionID, err)
		c.notifyStatus(sessionID, StatusFailed)
		return StartedEvent{}, err
	}
	if c.abortRequested {
		c.resetLocked()
		c.mu.Unlock()
		c.discardBackend(ctx, b, logger)
		c.removeFiles(logger, opts.OutputPath)
		c.finishAbort(sessionID, gate, logger)
		return StartedEvent{}, ErrAborted
	}
	c.backend = b
	c.backendKind = kind
	c.startedAt = c.cfg.Now()
	c.setPhaseLocked(phaseRecording)
	ev := StartedEvent{
		SessionID:     sessionID,
		Backend:       kind,
		UsingFallback: kind == BackendFallback,
		OutputPath:    finalPath,
		Options:       c.resume.Clone(),
		StartedAt:     c.startedAt,
	}
	c.mu.Unlock()

	span.SetAttributes(
		attribute.String(telemetry.RecordingBackendKey, string(kind)),
		attribute.Bool(telemetry.RecordingFallbackKey, ev.UsingFallback),
	)
	metrics.IncRecordingStart(string(kind))
	logger.Info().Str(xglog.FieldBackend, string(kind)).Str(xglog.FieldMode, string(opts.Mode)).Msg("recording started")

	for _, o := range c.snapshotObservers() {
		o.RecordingStarted(ev)
	}
	c.notifyStatus(sessionID, StatusRecording)
	return ev, nil
}

// StopRecording stops the session, finalizes its segments and returns the
// final output path.
func (c *Controller) StopRecording(ctx context.Context) (string, error) {
	return c.stopSession(ctx, "")
}

// StopSession is StopRecording restricted to one session. It returns
// ErrNotRecording once that session has ended, even if another one runs.
func (c *Controller) StopSession(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", ErrNotRecording
	}
	return c.stopSession(ctx, sessionID)
}

func (c *Controller) stopSession(ctx context.Context, only string) (string, error) {
	c.mu.Lock()
	if only != "" && only != c.sessionID {
		c.mu.Unlock()
		return "", ErrNotRecording
	}
	switch c.phase {
	case phaseIdle:
		c.mu.Unlock()
		return "", ErrNotRecording
	case phaseRecording, phasePaused:
	default:
		c.mu.Unlock()
		return "", ErrBusy
	}
	b := c.backend
	c.backend = nil
	c.generation++
	c.setPhaseLocked(phaseStopping)
	sessionID := c.sessionID
	segmentOut := c.current.OutputPath
	gate := c.gate
	startedAt := c.startedAt
	c.mu.Unlock()

	ctx, span := c.tracer.Start(ctx, "recording.stop",
		trace.WithAttributes(telemetry.RecordingAttributes(sessionID, "", "")...))
	defer span.End()

	logger := c.log.With().Str(xglog.FieldSessionID, sessionID).Logger()
	c.notifyStatus(sessionID, StatusFinalizing)

	var stopErr error
	if b != nil {
		path, err := c.stopBackend(ctx, b, segmentOut)
		c.mu.Lock()
		if err == nil {
			c.segments = append(c.segments, path)
		}
		c.mu.Unlock()
		if err != nil {
			stopErr = err
			logger.Warn().Err(err).Str(xglog.FieldSegment, segmentOut).Msg("last segment missing after stop")
		}
	}

	c.mu.Lock()
	if c.abortRequested {
		segments, finalPath := c.segments, c.discardableFinalLocked()
		c.resetLocked()
		c.mu.Unlock()
		c.removeFiles(logger, append(segments, finalPath)...)
		c.finishAbort(sessionID, gate, logger)
		return "", ErrAborted
	}
	c.setPhaseLocked(phaseFinalizing)
	segments := append([]string(nil), c.segments...)
	finalPath := c.finalPath
	c.mu.Unlock()

	out, err := c.finalize(ctx, segments, finalPath, logger)

	c.mu.Lock()
	c.resetLocked()
	c.mu.Unlock()
	gate.signal(StopRequested)

	if err == nil && out == "" {
		err = ErrMissingOutput
		if stopErr != nil {
			err = fmt.Errorf("%w: %w", ErrMissingOutput, stopErr)
		}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stop failed")
		if errors.Is(err, ErrMissingOutput) {
			metrics.IncRecordingOutcome("missing_output")
		} else {
			metrics.IncRecordingOutcome("failed")
		}
		logger.Error().Err(err).Msg("recording stop failed")
		c.notifyError(sessionID, err)
		c.notifyStatus(sessionID, StatusFailed)
		return "", err
	}

	span.SetAttributes(attribute.Int(telemetry.RecordingSegmentsKey, len(segments)))
	metrics.RecordingSegments.Observe(float64(len(segments)))
	metrics.IncRecordingOutcome("completed")
	logger.Info().Str(xglog.FieldFinalPath, out).Int("segments", len(segments)).Msg("recording completed")

	ev := CompletedEvent{
		SessionID:  sessionID,
		OutputPath: out,
		Segments:   len(segments),
		Duration:   c.cfg.Now().Sub(startedAt),
	}
	for _, o := range c.snapshotObservers() {
		o.RecordingCompleted(ev)
	}
	c.notifyStatus(sessionID, StatusCompleted)
	return out, nil
}

// AbortRecording discards the session and all of its output. When a
// transition is in flight the abort is applied as soon as it settles.
func (c *Controller) AbortRecording(ctx context.Context) error {
	return c.abortSession(ctx, "")
}

// AbortSession is AbortRecording restricted to one session.
func (c *Controller) AbortSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrNotRecording
	}
	return c.abortSession(ctx, sessionID)
}

func (c *Controller) abortSession(ctx context.Context, only string) error {
	c.mu.Lock()
	if only != "" && only != c.sessionID {
		c.mu.Unlock()
		return ErrNotRecording
	}
	switch c.phase {
	case phaseIdle:
		c.mu.Unlock()
		return ErrNotRecording
	case phaseStarting, phasePausing, phaseResuming, phaseStopping:
		c.abortRequested = true
		c.mu.Unlock()
		c.log.Info().Str(xglog.FieldSessionID, c.sessionIDSnapshot()).Msg("abort requested during transition")
		return nil
	case phaseRecording, phasePaused:
	default:
		c.mu.Unlock()
		return ErrBusy
	}
	b := c.backend
	c.backend = nil
	c.generation++
	c.setPhaseLocked(phaseAborting)
	sessionID := c.sessionID
	segmentOut := c.current.OutputPath
	c.mu.Unlock()

	logger := c.log.With().Str(xglog.FieldSessionID, sessionID).Logger()
	if b != nil {
		c.discardBackend(ctx, b, logger)
	}

	c.mu.Lock()
	files := append(append([]string(nil), c.segments...), segmentOut, c.discardableFinalLocked())
	gate := c.gate
	c.resetLocked()
	c.mu.Unlock()

	c.removeFiles(logger, files...)
	c.finishAbort(sessionID, gate, logger)
	return nil
}

// PauseRecording stops the running segment without releasing the stop gate.
func (c *Controller) PauseRecording(ctx context.Context) error {
	c.mu.Lock()
	switch c.phase {
	case phaseIdle:
		c.mu.Unlock()
		return ErrNotRecording
	case phasePaused:
		c.mu.Unlock()
		return nil
	case phaseRecording:
	default:
		c.mu.Unlock()
		return ErrBusy
	}
	b := c.backend
	c.backend = nil
	c.generation++
	c.setPhaseLocked(phasePausing)
	sessionID := c.sessionID
	segmentOut := c.current.OutputPath
	c.mu.Unlock()

	logger := c.log.With().Str(xglog.FieldSessionID, sessionID).Logger()
	path, err := c.stopBackend(ctx, b, segmentOut)

	c.mu.Lock()
	if err == nil {
		c.segments = append(c.segments, path)
	}
	if c.abortRequested {
		files := append(append([]string(nil), c.segments...), segmentOut, c.discardableFinalLocked())
		gate := c.gate
		c.resetLocked()
		c.mu.Unlock()
		c.removeFiles(logger, files...)
		c.finishAbort(sessionID, gate, logger)
		return ErrAborted
	}
	c.paused = true
	c.setPhaseLocked(phasePaused)
	segments := len(c.segments)
	c.mu.Unlock()

	c.notifyStatus(sessionID, StatusPaused)
	if err != nil {
		logger.Warn().Err(err).Str(xglog.FieldSegment, segmentOut).Msg("segment lost while pausing")
		c.notifyError(sessionID, err)
		return fmt.Errorf("pause: %w", err)
	}
	logger.Info().Int("segments", segments).Msg("recording paused")
	return nil
}

// ResumeRecording starts a new segment from a clone of the session's options.
func (c *Controller) ResumeRecording(ctx context.Context) error {
	c.mu.Lock()
	switch c.phase {
	case phaseIdle:
		c.mu.Unlock()
		return ErrNotRecording
	case phaseRecording:
		c.mu.Unlock()
		return ErrNotPaused
	case phasePaused:
	default:
		c.mu.Unlock()
		return ErrBusy
	}
	c.segmentIndex++
	opts := c.resume.Clone()
	opts.OutputPath = SegmentPath(c.finalPath, c.segmentIndex)
	c.generation++
	gen := c.generation
	c.setPhaseLocked(phaseResuming)
	sessionID := c.sessionID
	c.mu.Unlock()

	logger := c.log.With().
		Str(xglog.FieldSessionID, sessionID).
		Str(xglog.FieldSegment, opts.OutputPath).
		Logger()
	if err := fsutil.RemoveIfExists(opts.OutputPath); err != nil {
		logger.Warn().Err(err).Msg("could not remove stale segment file")
	}
	c.notifyStatus(sessionID, StatusStarting)

	b, kind, err := c.launch(ctx, gen, opts, logger)

	c.mu.Lock()
	if c.abortRequested {
		files := append(append([]string(nil), c.segments...), opts.OutputPath, c.discardableFinalLocked())
		gate := c.gate
		c.resetLocked()
		c.mu.Unlock()
		if err == nil {
			c.discardBackend(ctx, b, logger)
		}
		c.removeFiles(logger, files...)
		c.finishAbort(sessionID, gate, logger)
		return ErrAborted
	}
	if err != nil {
		c.setPhaseLocked(phasePaused)
		c.mu.Unlock()
		logger.Error().Err(err).Msg("resume failed, session stays paused")
		c.notifyError(sessionID, err)
		c.notifyStatus(sessionID, StatusPaused)
		return fmt.Errorf("resume: %w", err)
	}
	c.backend = b
	c.backendKind = kind
	c.current = opts
	c.paused = false
	c.setPhaseLocked(phaseRecording)
	c.mu.Unlock()

	metrics.IncRecordingStart(string(kind))
	logger.Info().Str(xglog.FieldBackend, string(kind)).Msg("recording resumed")
	c.notifyStatus(sessionID, StatusRecording)
	return nil
}

// TogglePauseResume pauses a running session or resumes a paused one and
// returns the resulting status.
func (c *Controller) TogglePauseResume(ctx context.Context) (Status, error) {
	c.mu.Lock()
	p := c.phase
	c.mu.Unlock()

	switch p {
	case phaseRecording:
		if err := c.PauseRecording(ctx); err != nil {
			return c.State().Status, err
		}
		return StatusPaused, nil
	case phasePaused:
		if err := c.ResumeRecording(ctx); err != nil {
			return c.State().Status, err
		}
		return StatusRecording, nil
	case phaseIdle:
		return StatusIdle, ErrNotRecording
	}
	return p.status(), ErrBusy
}

// WaitForStopSignal blocks until the stop gate of sessionID opens or ctx
// ends. An empty sessionID waits on the most recent session. Gates of ended
// sessions stay resolvable for a while, so a late waiter still sees why its
// own session ended.
func (c *Controller) WaitForStopSignal(ctx context.Context, sessionID string) (StopReason, error) {
	g := c.gateFor(sessionID)
	if g == nil {
		return "", ErrNotRecording
	}
	return g.wait(ctx)
}

// SignalStop releases the most recent session's stop gate. A signal sent
// before anyone waits is kept for the next waiter. It is a no-op without a
// session gate or once the gate has fired.
func (c *Controller) SignalStop() {
	c.signal(c.gateFor(""), "")
}

// SignalStopSession releases the stop gate of sessionID only and reports
// whether this call opened it.
func (c *Controller) SignalStopSession(sessionID string) bool {
	if sessionID == "" {
		return false
	}
	return c.signal(c.gateFor(sessionID), sessionID)
}

func (c *Controller) signal(g *stopGate, sessionID string) bool {
	if g == nil || !g.signal(StopRequested) {
		return false
	}
	c.log.Debug().Str(xglog.FieldSessionID, sessionID).Msg("stop signal released")
	return true
}

func (c *Controller) gateFor(sessionID string) *stopGate {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sessionID == "" {
		return c.gate
	}
	return c.gates[sessionID]
}

// State returns a snapshot of the controller.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		SessionID:  c.sessionID,
		Status:     c.phase.status(),
		Backend:    c.backendKind,
		Paused:     c.paused,
		Segments:   len(c.segments),
		OutputPath: c.finalPath,
		StartedAt:  c.startedAt,
	}
}

// IsRecording reports whether a session is open, paused sessions included.
func (c *Controller) IsRecording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase != phaseIdle
}

func (c *Controller) launch(ctx context.Context, gen uint64, opts Options, logger zerolog.Logger) (Backend, BackendKind, error) {
	events := backendEvents{c: c, gen: gen}

	if forced, reason := c.ShouldForceFallback(opts); forced {
		metrics.IncRecordingFallback(reason)
		logger.Debug().Str("reason", reason).Msg("using fallback backend")
		b, err := c.startWith(ctx, c.cfg.Fallback, events, opts, logger)
		if err != nil {
			return nil, BackendFallback, fmt.Errorf("fallback backend: %w", err)
		}
		return b, BackendFallback, nil
	}

	b, err := c.startWith(ctx, c.cfg.Native, events, opts, logger)
	if err == nil {
		return b, BackendNative, nil
	}
	if !IsCapabilityError(err) {
		return nil, BackendNative, fmt.Errorf("native backend: %w", err)
	}

	metrics.IncRecordingFallback("capability")
	logger.Warn().Err(err).Msg("native capture unavailable, retrying with fallback backend")
	b, err = c.startWith(ctx, c.cfg.Fallback, events, opts, logger)
	if err != nil {
		return nil, BackendFallback, fmt.Errorf("fallback backend after native capability failure: %w", err)
	}
	return b, BackendFallback, nil
}

func (c *Controller) startWith(ctx context.Context, factory BackendFactory, events BackendEvents, opts Options, logger zerolog.Logger) (Backend, error) {
	b, err := factory(events)
	if err != nil {
		return nil, err
	}
	existed := fsutil.Exists(opts.OutputPath)
	if err := b.Start(ctx, opts); err != nil {
		c.discardBackend(ctx, b, logger)
		if !existed {
			c.removeFiles(logger, opts.OutputPath)
		}
		return nil, err
	}
	return b, nil
}

// stopBackend stops b and waits, bounded, for its segment to be on disk.
func (c *Controller) stopBackend(ctx context.Context, b Backend, expected string) (string, error) {
	ctx = context.WithoutCancel(ctx)
	path, stopErr := b.Stop(ctx)
	if path == "" {
		path = expected
	}
	if stopErr != nil {
		c.log.Warn().Err(stopErr).Str(xglog.FieldSegment, path).Msg("backend stop reported an error")
	}

	ok, err := waitForFile(ctx, path, c.cfg.FlushTimeout, c.cfg.FlushPoll)
	if err != nil {
		return "", err
	}
	if !ok {
		if stopErr != nil {
			return "", fmt.Errorf("stop backend: %w", stopErr)
		}
		return "", fmt.Errorf("%w: %s", ErrMissingOutput, path)
	}
	return path, nil
}

func (c *Controller) discardBackend(ctx context.Context, b Backend, logger zerolog.Logger) {
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if _, err := b.Stop(stopCtx); err != nil {
		logger.Debug().Err(err).Msg("backend cleanup stop failed")
	}
}

func (c *Controller) finishAbort(sessionID string, gate *stopGate, logger zerolog.Logger) {
	gate.signal(StopAborted)
	metrics.IncRecordingOutcome("aborted")
	logger.Info().Msg("recording aborted")
	c.notifyStatus(sessionID, StatusAborted)
}

func (c *Controller) removeFiles(logger zerolog.Logger, paths ...string) {
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			logger.Warn().Err(err).Str(xglog.FieldPath, p).Msg("failed to delete recording file")
		}
	}
}

// resetLocked clears all session fields at once. The gate is kept so a late
// waiter still observes the fired signal.
func (c *Controller) resetLocked() {
	if c.sessionID != "" {
		c.endedGates = append(c.endedGates, c.sessionID)
		if len(c.endedGates) > maxEndedGates {
			delete(c.gates, c.endedGates[0])
			c.endedGates = c.endedGates[1:]
		}
	}
	c.setPhaseLocked(phaseIdle)
	c.generation++
	c.sessionID = ""
	c.backend = nil
	c.backendKind = ""
	c.current = Options{}
	c.resume = Options{}
	c.finalPath = ""
	c.finalExisted = false
	c.segments = nil
	c.segmentIndex = 0
	c.paused = false
	c.abortRequested = false
	c.startedAt = time.Time{}
}

// discardableFinalLocked is the final path when the session created it and
// "" when it points at a file that predates the session.
func (c *Controller) discardableFinalLocked() string {
	if c.finalExisted {
		return ""
	}
	return c.finalPath
}

func (c *Controller) setPhaseLocked(p phase) {
	if c.phase == p {
		return
	}
	c.log.Debug().
		Str(xglog.FieldOldState, c.phase.String()).
		Str(xglog.FieldNewState, p.String()).
		Msg("recording phase transition")
	c.phase = p
}

func (c *Controller) sessionIDSnapshot() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Controller) snapshotObservers() []Observer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Observer(nil), c.observers...)
}

func (c *Controller) notifyStatus(sessionID string, s Status) {
	for _, o := range c.snapshotObservers() {
		o.RecordingStatusChanged(sessionID, s)
	}
}

func (c *Controller) notifyError(sessionID string, err error) {
	for _, o := range c.snapshotObservers() {
		o.RecordingError(sessionID, err)
	}
}

// backendEvents tags callbacks with the launch generation so events from a
// backend that was already replaced or stopped are dropped.
type backendEvents struct {
	c   *Controller
	gen uint64
}

func (e backendEvents) BackendStatus(s Status) {
	c := e.c
	c.mu.Lock()
	if e.gen != c.generation || c.phase != phaseRecording {
		c.mu.Unlock()
		return
	}
	sessionID := c.sessionID
	c.mu.Unlock()
	c.notifyStatus(sessionID, s)
}

func (e backendEvents) BackendError(err error) {
	c := e.c
	c.mu.Lock()
	if e.gen != c.generation || c.phase != phaseRecording {
		c.mu.Unlock()
		c.log.Debug().Err(err).Msg("ignoring error from inactive backend")
		return
	}
	sessionID := c.sessionID
	gate := c.gate
	c.mu.Unlock()

	c.log.Error().Err(err).Str(xglog.FieldSessionID, sessionID).Msg("recording backend failed")
	c.notifyError(sessionID, err)
	gate.signal(StopBackendFailed)
}
