// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ffmpeg

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/capctl/internal/procgroup"
)

// Exec abstracts one-shot command execution for testing.
type Exec interface {
	Run(ctx context.Context, name string, args []string, stdout io.Writer) error
}

// DefaultExec runs commands in their own process group and kills the whole
// group when ctx ends.
type DefaultExec struct {
	Logger zerolog.Logger
}

func (e DefaultExec) Run(ctx context.Context, name string, args []string, stdout io.Writer) error {
	ring := NewLineRing(32)
	cmd := exec.CommandContext(ctx, name, args...) // #nosec G204 -- binary and args are built internally
	procgroup.Prepare(cmd)
	cmd.Cancel = procgroup.KillOnCancel(cmd)
	cmd.WaitDelay = 5 * time.Second
	cmd.Stdout = stdout
	cmd.Stderr = ring

	start := time.Now()
	err := cmd.Run()
	e.Logger.Debug().
		Str("bin", name).
		Dur("took", time.Since(start)).
		Err(err).
		Msg("ffmpeg tool finished")
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s failed: %w (stderr: %s)", name, err, ring.Tail(5))
	}
	return nil
}
