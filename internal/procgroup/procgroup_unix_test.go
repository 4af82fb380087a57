// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build linux

package procgroup

import (
	"context"
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func startLeader(t *testing.T, script string) (*exec.Cmd, chan struct{}) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	cmd := exec.Command("sh", "-c", script)
	Prepare(cmd)
	require.NoError(t, cmd.Start())

	exited := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(exited)
	}()
	return cmd, exited
}

func TestEscalate_TermReachesWholeGroup(t *testing.T) {
	cmd, exited := startLeader(t, "sleep 10 & sleep 10")
	pgid, err := unix.Getpgid(cmd.Process.Pid)
	require.NoError(t, err)
	assert.Equal(t, cmd.Process.Pid, pgid)

	out := Escalate(context.Background(), cmd, exited, 2*time.Second)
	assert.Equal(t, OutcomeTerminated, out)

	require.Eventually(t, func() bool {
		return unix.Kill(-pgid, syscall.Signal(0)) == unix.ESRCH
	}, 2*time.Second, 20*time.Millisecond, "background child should be gone too")
}

func TestEscalate_KillsAfterGrace(t *testing.T) {
	cmd, exited := startLeader(t, "trap '' TERM; while true; do sleep 1; done")
	time.Sleep(50 * time.Millisecond)

	start := time.Now()
	out := Escalate(context.Background(), cmd, exited, 200*time.Millisecond)
	assert.Equal(t, OutcomeKilled, out)
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
}

func TestEscalate_CanceledContextSkipsGrace(t *testing.T) {
	cmd, exited := startLeader(t, "trap '' TERM; while true; do sleep 1; done")
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	out := Escalate(ctx, cmd, exited, time.Minute)
	assert.Equal(t, OutcomeKilled, out)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestSignalGroup_NilAndExited(t *testing.T) {
	assert.NoError(t, SignalGroup(nil, SignalTerm))
	assert.Equal(t, OutcomeExited, Escalate(context.Background(), nil, nil, time.Millisecond))

	cmd, exited := startLeader(t, "exit 0")
	<-exited
	assert.NoError(t, SignalGroup(cmd, SignalTerm))
	assert.Equal(t, OutcomeExited, Escalate(context.Background(), cmd, exited, time.Millisecond))
}

func TestKillOnCancel(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, "sh", "-c", "sleep 10 & sleep 10")
	Prepare(cmd)
	cmd.Cancel = KillOnCancel(cmd)
	require.NoError(t, cmd.Start())

	time.AfterFunc(50*time.Millisecond, cancel)
	assert.Error(t, cmd.Wait())
}
