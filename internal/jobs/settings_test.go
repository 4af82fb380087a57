// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusPredicates(t *testing.T) {
	for _, s := range []Status{StatusPreparing, StatusWorking, StatusStopping} {
		assert.True(t, s.IsBusy(), s)
		assert.False(t, s.IsTerminal(), s)
	}
	for _, s := range []Status{StatusCompleted, StatusFailed, StatusStopped, StatusCanceled} {
		assert.True(t, s.IsTerminal(), s)
		assert.False(t, s.IsBusy(), s)
	}
	assert.False(t, StatusInQueue.IsBusy())
	assert.False(t, StatusInQueue.IsTerminal())
}

func TestParseTasks(t *testing.T) {
	ac, err := ParseAfterCaptureTasks([]string{"upload", "save_to_file"})
	require.NoError(t, err)
	assert.Equal(t, []Task{TaskSaveToFile, TaskUpload}, ac.Tasks(), "execution order is fixed")

	au, err := ParseAfterUploadTasks([]string{"notify_url", "copy_url"})
	require.NoError(t, err)
	assert.Equal(t, []Task{TaskCopyURL, TaskNotifyURL}, au.Tasks())

	_, err = ParseAfterCaptureTasks([]string{"print"})
	assert.Error(t, err)
	_, err = ParseAfterUploadTasks([]string{"upload"})
	assert.Error(t, err)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Recording ")
	require.NoError(t, err)
	assert.Equal(t, KindRecording, k)
	_, err = ParseKind("scan")
	assert.Error(t, err)
}

func TestSettingsNormalized(t *testing.T) {
	s := Settings{Kind: KindTextUpload}.normalized()
	assert.True(t, s.AfterCapture.Has(AfterCaptureUpload))
	s = Settings{Kind: KindScreenshot}.normalized()
	assert.False(t, s.AfterCapture.Has(AfterCaptureUpload))
	assert.NotEmpty(t, s.Capture.Mode)
}
