// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package notify

import (
	"context"
	"os/exec"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// CommandRunner runs an external command to completion.
type CommandRunner func(ctx context.Context, name string, args ...string) error

func runCommand(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run() // #nosec G204 -- fixed binary, args are message text
}

// Desktop shows notifications through notify-send.
type Desktop struct {
	Bin     string
	AppName string
	Timeout time.Duration
	Run     CommandRunner
	Logger  zerolog.Logger
}

func (d Desktop) Notify(ctx context.Context, msg Message) {
	bin := d.Bin
	if bin == "" {
		bin = "notify-send"
	}
	run := d.Run
	if run == nil {
		run = runCommand
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	urgency := "normal"
	switch msg.Level {
	case LevelError:
		urgency = "critical"
	case LevelInfo:
		urgency = "low"
	}
	args := []string{"-u", urgency}
	if d.AppName != "" {
		args = append(args, "-a", d.AppName)
	}
	if msg.Duration > 0 {
		args = append(args, "-t", strconv.FormatInt(msg.Duration.Milliseconds(), 10))
	}
	args = append(args, msg.Title, msg.Text)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err := run(ctx, bin, args...); err != nil {
		d.Logger.Debug().Err(err).Str("title", msg.Title).Msg("desktop notification failed")
	}
}
