// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package ffmpeg implements the external-process recording backend and the
// ffmpeg-based tools around it (segment concat, GIF export, screenshots).
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/capctl/internal/log"
	"github.com/ManuGH/capctl/internal/procgroup"
	"github.com/ManuGH/capctl/internal/recording"
)

// BackendConfig configures the ffmpeg recording backend.
type BackendConfig struct {
	BinPath  string
	Platform Platform

	// StartupGrace is how long Start watches for an immediate encoder exit.
	StartupGrace time.Duration
	// StopTimeout bounds the wait for a graceful "q" shutdown.
	StopTimeout time.Duration
	// KillGrace is the SIGTERM -> SIGKILL escalation delay.
	KillGrace time.Duration

	Logger zerolog.Logger
}

func (c BackendConfig) withDefaults() BackendConfig {
	if c.BinPath == "" {
		c.BinPath = "ffmpeg"
	}
	if c.Platform.GOOS == "" {
		c.Platform = DefaultPlatform()
	}
	if c.StartupGrace <= 0 {
		c.StartupGrace = 500 * time.Millisecond
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = 5 * time.Second
	}
	if c.KillGrace <= 0 {
		c.KillGrace = 2 * time.Second
	}
	return c
}

// NewFactory returns a recording.BackendFactory producing ffmpeg backends.
// A missing binary is reported as a capability failure.
func NewFactory(cfg BackendConfig) recording.BackendFactory {
	cfg = cfg.withDefaults()
	return func(events recording.BackendEvents) (recording.Backend, error) {
		bin, err := exec.LookPath(cfg.BinPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %s not found: %v", recording.ErrCapabilityUnavailable, cfg.BinPath, err)
		}
		return &Backend{
			cfg:    cfg,
			bin:    bin,
			events: events,
			log:    cfg.Logger.With().Str(xglog.FieldComponent, "ffmpeg").Logger(),
		}, nil
	}
}

// Backend records one segment with a supervised ffmpeg process.
type Backend struct {
	cfg    BackendConfig
	bin    string
	events recording.BackendEvents
	log    zerolog.Logger

	mu       sync.Mutex
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	ring     *LineRing
	output   string
	running  bool
	stopping bool
	exited   chan struct{}
	exitErr  error
}

// Start launches ffmpeg and returns once it survived the startup grace.
func (b *Backend) Start(ctx context.Context, opts recording.Options) error {
	args, err := BuildRecordArgs(b.cfg.Platform, opts)
	if err != nil {
		return err
	}

	b.mu.Lock()
	if b.cmd != nil {
		b.mu.Unlock()
		return errors.New("ffmpeg backend already started")
	}
	// The process must outlive the start request, so it is not bound to ctx.
	cmd := exec.Command(b.bin, args...) // #nosec G204 -- args are built by BuildRecordArgs
	procgroup.Prepare(cmd)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		b.mu.Unlock()
		return fmt.Errorf("ffmpeg stdin: %w", err)
	}
	ring := NewLineRing(128)
	cmd.Stderr = ring
	if err := cmd.Start(); err != nil {
		b.mu.Unlock()
		return fmt.Errorf("start ffmpeg: %w", err)
	}
	b.cmd = cmd
	b.stdin = stdin
	b.ring = ring
	b.output = opts.OutputPath
	b.exited = make(chan struct{})
	exited := b.exited
	b.mu.Unlock()

	logger := b.log.With().Int(xglog.FieldPID, cmd.Process.Pid).Str(xglog.FieldPath, opts.OutputPath).Logger()
	logger.Debug().Strs("args", args).Msg("ffmpeg started")
	go b.supervise(logger)

	grace := time.NewTimer(b.cfg.StartupGrace)
	defer grace.Stop()
	select {
	case <-exited:
		return fmt.Errorf("ffmpeg exited during startup: %v (stderr: %s)", b.exitError(), ring.Tail(5))
	case <-ctx.Done():
		b.kill(ctx, logger)
		return ctx.Err()
	case <-grace.C:
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	select {
	case <-exited:
		return fmt.Errorf("ffmpeg exited during startup: %v (stderr: %s)", b.exitErr, ring.Tail(5))
	default:
	}
	b.running = true
	return nil
}

func (b *Backend) supervise(logger zerolog.Logger) {
	err := b.cmd.Wait()

	b.mu.Lock()
	b.exitErr = err
	report := b.running && !b.stopping
	close(b.exited)
	b.mu.Unlock()

	if !report {
		return
	}
	if err == nil {
		err = errors.New("encoder exited unexpectedly")
	}
	logger.Warn().Err(err).Strs("stderr", b.ring.LastN(10)).Msg("ffmpeg exited while recording")
	if b.events != nil {
		b.events.BackendStatus(recording.StatusFailed)
		b.events.BackendError(fmt.Errorf("ffmpeg: %w (stderr: %s)", err, b.ring.Tail(5)))
	}
}

// Stop asks ffmpeg to finish the file ("q" on stdin) and escalates to
// SIGTERM/SIGKILL when it does not exit in time.
func (b *Backend) Stop(ctx context.Context) (string, error) {
	b.mu.Lock()
	if b.cmd == nil {
		b.mu.Unlock()
		return "", nil
	}
	alreadyStopping := b.stopping
	b.stopping = true
	exited := b.exited
	output := b.output
	b.mu.Unlock()

	logger := b.log.With().Int(xglog.FieldPID, b.cmd.Process.Pid).Logger()
	if alreadyStopping {
		<-exited
		return output, nil
	}

	select {
	case <-exited:
		if err := b.exitError(); err != nil {
			return output, fmt.Errorf("ffmpeg had already exited: %w (stderr: %s)", err, b.ring.Tail(5))
		}
		return output, nil
	default:
	}

	_, _ = io.WriteString(b.stdin, "q\n")
	_ = b.stdin.Close()

	timer := time.NewTimer(b.cfg.StopTimeout)
	defer timer.Stop()
	select {
	case <-exited:
		if err := b.exitError(); err != nil {
			return output, fmt.Errorf("ffmpeg stop: %w (stderr: %s)", err, b.ring.Tail(5))
		}
		logger.Debug().Msg("ffmpeg finished gracefully")
		return output, nil
	case <-timer.C:
		logger.Warn().Dur("timeout", b.cfg.StopTimeout).Msg("ffmpeg ignored quit request, terminating")
	case <-ctx.Done():
		logger.Warn().Msg("stop canceled, terminating ffmpeg")
	}
	b.kill(ctx, logger)
	return output, nil
}

// kill escalates to signals. A done ctx skips the SIGTERM grace.
func (b *Backend) kill(ctx context.Context, logger zerolog.Logger) {
	b.mu.Lock()
	b.stopping = true
	exited := b.exited
	b.mu.Unlock()

	out := procgroup.Escalate(ctx, b.cmd, exited, b.cfg.KillGrace)
	logger.Debug().Str("outcome", string(out)).AnErr("exit", b.exitError()).Msg("ffmpeg terminated")
}

func (b *Backend) exitError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exitErr
}
