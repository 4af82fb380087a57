// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build windows

package procgroup

import (
	"errors"
	"os"
	"os/exec"
)

// Prepare is a no-op on Windows.
func Prepare(cmd *exec.Cmd) {}

// SignalGroup only acts on SignalKill. Encoders are asked to quit through
// stdin before a caller escalates.
func SignalGroup(cmd *exec.Cmd, sig Signal) error {
	if cmd == nil || cmd.Process == nil || sig != SignalKill {
		return nil
	}
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
