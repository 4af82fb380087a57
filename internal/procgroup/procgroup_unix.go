// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build unix

package procgroup

import (
	"errors"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// Prepare makes cmd lead a new process group once started. The group id
// then equals the leader's pid.
func Prepare(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// SignalGroup delivers sig to the group led by cmd. A process that is
// already gone is not an error.
func SignalGroup(cmd *exec.Cmd, sig Signal) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	s := unix.SIGTERM
	if sig == SignalKill {
		s = unix.SIGKILL
	}
	err := unix.Kill(-cmd.Process.Pid, s)
	if err == nil || !errors.Is(err, unix.ESRCH) {
		return err
	}
	// No such group: the leader is gone or Prepare was never called.
	if err := cmd.Process.Signal(s); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
