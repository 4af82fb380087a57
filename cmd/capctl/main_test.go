// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/capctl/internal/control"
	"github.com/ManuGH/capctl/internal/history"
	"github.com/ManuGH/capctl/internal/jobs"
	"github.com/ManuGH/capctl/internal/recording"
	"github.com/ManuGH/capctl/internal/workflow"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dataDir: "+dir+"\nnotify:\n  desktop: false\n"+body), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

const sampleWorkflows = `
workflows:
  - id: note
    name: Quick note
    kind: text_upload
    text: hello
    afterCapture: [save_to_file]
  - id: shot
    kind: screenshot
`

func TestConfigValidate(t *testing.T) {
	path := writeConfig(t, sampleWorkflows)
	out, err := execute(t, "config", "validate", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid (2 workflows)")
}

func TestConfigValidateRejectsUnknownField(t *testing.T) {
	path := writeConfig(t, "bogusKey: 1\n")
	_, err := execute(t, "config", "validate", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration error")
}

func TestConfigDumpMasksToken(t *testing.T) {
	path := writeConfig(t, "control:\n  token: supersecret\n")
	out, err := execute(t, "config", "dump", "--config", path)
	require.NoError(t, err)
	assert.NotContains(t, out, "supersecret")
	assert.Contains(t, out, "***")
}

func TestWorkflowList(t *testing.T) {
	path := writeConfig(t, sampleWorkflows)
	out, err := execute(t, "workflow", "list", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Quick note")
	assert.Contains(t, out, "save_to_file")
	assert.Contains(t, out, "shot")
}

func TestWorkflowRunLocal(t *testing.T) {
	path := writeConfig(t, sampleWorkflows)
	out, err := execute(t, "workflow", "run", "note", "--local", "--json", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "completed"`)
}

func TestWorkflowRunRejectsBadRegion(t *testing.T) {
	path := writeConfig(t, sampleWorkflows)
	_, err := execute(t, "workflow", "run", "shot", "--local", "--region", "1,2", "--config", path)
	require.Error(t, err)
}

func TestHistoryListLocal(t *testing.T) {
	path := writeConfig(t, "")
	out, err := execute(t, "history", "list", "--local", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "WHEN")

	_, err = execute(t, "history", "list", "--limit", "0", "--config", path)
	require.Error(t, err)
}

type stubRecorder struct{}

func (stubRecorder) AbortRecording(context.Context) error  { return recording.ErrNotRecording }
func (stubRecorder) PauseRecording(context.Context) error  { return recording.ErrNotRecording }
func (stubRecorder) ResumeRecording(context.Context) error { return recording.ErrNotPaused }
func (stubRecorder) TogglePauseResume(context.Context) (recording.Status, error) {
	return "", recording.ErrNotRecording
}
func (stubRecorder) SignalStop()            {}
func (stubRecorder) State() recording.State { return recording.State{Status: recording.StatusIdle} }
func (stubRecorder) IsRecording() bool      { return false }

func TestJobsListAndRecordStatusAgainstDaemon(t *testing.T) {
	reg := jobs.NewRegistry(5, &jobs.Deps{Logger: zerolog.Nop()})
	j, err := reg.Run(context.Background(), jobs.Settings{Kind: jobs.KindTextUpload, Text: "x"})
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, j.Wait(ctx))

	srv := httptest.NewServer(control.NewServer(control.ServerConfig{Logger: zerolog.Nop()}, control.Deps{
		Recorder:  stubRecorder{},
		Jobs:      reg,
		Workflows: workflow.NewCatalog(nil),
	}).Handler())
	defer srv.Close()

	out, err := execute(t, "jobs", "list", "--addr", srv.URL, "--token", "unused")
	require.NoError(t, err)
	assert.Contains(t, out, shortID(j.ID()))
	assert.Contains(t, out, "text_upload")

	out, err = execute(t, "record", "status", "--addr", srv.URL, "--token", "unused")
	require.NoError(t, err)
	assert.Contains(t, out, "status: idle")

	_, err = execute(t, "record", "pause", "--addr", srv.URL, "--token", "unused")
	var apiErr *control.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 409, apiErr.StatusCode)
}

func TestPrintHelpers(t *testing.T) {
	var buf bytes.Buffer
	printJob(&buf, jobs.Snapshot{
		ID:       "abc",
		Kind:     jobs.KindScreenshot,
		Status:   jobs.StatusCompleted,
		Result:   jobs.Result{FilePath: "/tmp/a.png", URL: "https://x/a"},
		Warnings: []string{"copy_to_clipboard: no display"},
	})
	assert.Contains(t, buf.String(), "file:    /tmp/a.png")
	assert.Contains(t, buf.String(), "url:     https://x/a")
	assert.Contains(t, buf.String(), "warning: copy_to_clipboard")

	buf.Reset()
	printHistory(&buf, []history.Item{{Name: "a.png", Type: "screenshot", Timestamp: time.Now()}})
	assert.Contains(t, buf.String(), "a.png")

	assert.Equal(t, "https://x/a", output(jobs.Result{FilePath: "/f", URL: "https://x/a"}))
	assert.Equal(t, "12345678", shortID("1234567890"))
	assert.Equal(t, "-", formatTime(time.Time{}))
}
