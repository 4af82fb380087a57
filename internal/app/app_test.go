// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package app

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/capctl/internal/config"
	"github.com/ManuGH/capctl/internal/control"
	"github.com/ManuGH/capctl/internal/jobs"
	"github.com/ManuGH/capctl/internal/recording"
	"github.com/ManuGH/capctl/internal/workflow"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

func testConfig(t *testing.T) config.AppConfig {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.DataDir = dir
	cfg.Recording.Dir = filepath.Join(dir, "recordings")
	cfg.Jobs.SaveDir = filepath.Join(dir, "captures")
	cfg.Jobs.IndexDir = filepath.Join(dir, "indexes")
	cfg.Jobs.HistoryEnabled = true
	cfg.History.Path = filepath.Join(dir, "history.db")
	cfg.Notify.Desktop = false
	cfg.Control.RateLimit = 0
	cfg.Version = "test"
	cfg.Workflows = []workflow.Definition{
		{ID: "note", Kind: "text_upload", Text: "remember the milk", AfterCapture: []string{"save_to_file"}},
		{ID: "broken", Kind: "hologram"},
	}
	return cfg
}

func newTestApp(t *testing.T, cfg config.AppConfig) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, Options{
		Logger:           zerolog.Nop(),
		DisableTelemetry: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Shutdown(ctx)
	})
	return a
}

func TestRunLocalSavesAndRecordsHistory(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snap, err := a.RunLocal(ctx, "note", workflow.Overrides{})
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusCompleted, snap.Status)
	assert.True(t, snap.Successful)
	require.NotEmpty(t, snap.Result.FilePath)

	data, err := os.ReadFile(snap.Result.FilePath)
	require.NoError(t, err)
	assert.Equal(t, "remember the milk", string(data))

	items, err := a.History().List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, snap.ID, items[0].JobID)
	assert.Equal(t, snap.Result.FilePath, items[0].Path)
}

func TestHealthChecksRegistered(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	resp := a.health.Health(context.Background(), true)
	assert.Contains(t, resp.Checks, "history")
	assert.Contains(t, resp.Checks, "ffmpeg")
	assert.Contains(t, resp.Checks, "recordings_dir")
	assert.True(t, resp.Ready, "a missing ffmpeg only degrades")
}

func TestRunWorkflowErrors(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	_, err := a.RunWorkflow("missing", workflow.Overrides{})
	require.ErrorIs(t, err, workflow.ErrNotFound)

	_, err = a.RunWorkflow("broken", workflow.Overrides{})
	require.ErrorIs(t, err, control.ErrBadRequest)
	assert.Equal(t, 0, a.Registry().Len())
}

func TestApplyReplacesWorkflowsAndDefaults(t *testing.T) {
	cfg := testConfig(t)
	a := newTestApp(t, cfg)

	next := cfg
	next.Recording.FPS = 60
	next.Workflows = []workflow.Definition{{ID: "clip", Kind: "screenshot"}}
	a.apply(next)

	_, err := a.Catalog().Get("note")
	require.ErrorIs(t, err, workflow.ErrNotFound)
	_, err = a.Catalog().Get("clip")
	require.NoError(t, err)
	assert.Equal(t, 60, a.Config().Recording.FPS)
	assert.Equal(t, 60, a.defaults.Encoder.FPS)
}

func TestDefaultsFromConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Recording.CaptureMicrophone = true
	cfg.Recording.MicrophoneDevice = "hw:1"
	d := defaultsFrom(cfg)
	assert.Equal(t, cfg.Recording.FPS, d.Encoder.FPS)
	assert.Equal(t, cfg.Recording.Codec, d.Encoder.Codec)
	assert.True(t, d.Encoder.CaptureMicrophone)
	assert.Equal(t, "hw:1", d.Encoder.MicrophoneDevice)
}

func TestRunRecordingRejectsBadRegion(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	reg := recording.Region{X: 0, Y: 0, Width: 0, Height: 10}
	_, err := a.RunRecording(workflow.Overrides{Region: &reg})
	require.ErrorIs(t, err, control.ErrBadRequest)
}

func TestRunServesControlAPIAndShutsDown(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), Options{Logger: zerolog.Nop(), DisableTelemetry: true})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- a.Run(ctx, ln) }()

	client := control.NewClient(ln.Addr().String(), "")
	require.Eventually(t, func() bool {
		_, err := client.Health(context.Background())
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	snap, err := client.RunWorkflow(context.Background(), "note", control.RunRequest{Text: "via api"}, true)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusCompleted, snap.Status)

	items, err := client.History(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, items, 1)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return")
	}

	_, err = a.RunWorkflow("note", workflow.Overrides{})
	require.ErrorIs(t, err, ErrShutdown)
}

func TestNativePreferenceReachesCapabilityFallback(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	forced, reason := a.Recorder().ShouldForceFallback(recording.Options{Mode: recording.ModeScreen, UseNativeCapture: true})
	assert.False(t, forced, reason)

	forced, reason = a.Recorder().ShouldForceFallback(recording.Options{Mode: recording.ModeScreen})
	assert.True(t, forced)
	assert.Equal(t, "native_disabled", reason)
}
