// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ffmpeg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/capctl/internal/recording"
)

func linux() Platform {
	return Platform{GOOS: "linux", Display: ":1.0", ScreenDevice: "1", SystemAudioDevice: "@DEFAULT_MONITOR@"}
}

func joined(args []string) string { return strings.Join(args, " ") }

func TestBuildRecordArgs_LinuxRegion(t *testing.T) {
	args, err := BuildRecordArgs(linux(), recording.Options{
		Mode:       recording.ModeRegion,
		Region:     recording.Region{X: 10, Y: 20, Width: 640, Height: 480},
		OutputPath: "/tmp/out.mp4",
		Encoder:    recording.EncoderSettings{FPS: 25, Codec: "h264", Bitrate: 4000},
	})
	require.NoError(t, err)

	s := joined(args)
	assert.Contains(t, s, "-f x11grab -framerate 25 -video_size 640x480 -i :1.0+10,20")
	assert.Contains(t, s, "-c:v libx264")
	assert.Contains(t, s, "-b:v 4000k")
	assert.NotContains(t, s, "-crf")
	assert.Equal(t, "/tmp/out.mp4", args[len(args)-1])
}

func TestBuildRecordArgs_LinuxAudioMix(t *testing.T) {
	args, err := BuildRecordArgs(linux(), recording.Options{
		Mode:       recording.ModeScreen,
		OutputPath: "/tmp/out.webm",
		Encoder: recording.EncoderSettings{
			Codec:              "vp9",
			CaptureSystemAudio: true,
			CaptureMicrophone:  true,
			MicrophoneDevice:   "alsa_input.usb",
		},
	})
	require.NoError(t, err)

	s := joined(args)
	assert.Contains(t, s, "-f pulse -i @DEFAULT_MONITOR@ -f pulse -i alsa_input.usb")
	assert.Contains(t, s, "[1:a][2:a]amix=inputs=2:duration=longest[aout]")
	assert.Contains(t, s, "-map [aout]")
	assert.Contains(t, s, "-c:a libopus")
	assert.Contains(t, s, "-framerate 30", "fps defaults to 30")
}

func TestBuildRecordArgs_Windows(t *testing.T) {
	p := Platform{GOOS: "windows"}
	args, err := BuildRecordArgs(p, recording.Options{Mode: recording.ModeWindow, WindowID: "0x1234", OutputPath: `C:\r.mp4`})
	require.NoError(t, err)
	assert.Contains(t, joined(args), "-f gdigrab -framerate 30 -i hwnd=0x1234")

	_, err = BuildRecordArgs(p, recording.Options{
		Mode:       recording.ModeScreen,
		OutputPath: `C:\r.mp4`,
		Encoder:    recording.EncoderSettings{CaptureSystemAudio: true},
	})
	assert.ErrorIs(t, err, recording.ErrCapabilityUnavailable)
}

func TestBuildRecordArgs_DarwinRegionUsesCrop(t *testing.T) {
	p := Platform{GOOS: "darwin", ScreenDevice: "2"}
	args, err := BuildRecordArgs(p, recording.Options{
		Mode:       recording.ModeRegion,
		Region:     recording.Region{X: 1, Y: 2, Width: 300, Height: 200},
		OutputPath: "/tmp/a.mov",
	})
	require.NoError(t, err)
	s := joined(args)
	assert.Contains(t, s, "-i 2:none")
	assert.Contains(t, s, "-vf crop=300:200:1:2")

	_, err = BuildRecordArgs(p, recording.Options{Mode: recording.ModeWindow, WindowID: "1", OutputPath: "/tmp/a.mov"})
	assert.ErrorIs(t, err, recording.ErrCapabilityUnavailable)
}

func TestBuildScreenshotArgs(t *testing.T) {
	args, err := BuildScreenshotArgs(linux(), recording.Options{Mode: recording.ModeScreen})
	require.NoError(t, err)
	s := joined(args)
	assert.NotContains(t, s, "-framerate")
	assert.True(t, strings.HasSuffix(s, "-frames:v 1 -f image2pipe -vcodec png pipe:1"))
}

func TestBuildConcatArgs(t *testing.T) {
	s := joined(BuildConcatArgs("list.txt", "out.tmp", "mp4"))
	assert.Contains(t, s, "-f concat -safe 0 -i list.txt -c copy")
	assert.True(t, strings.HasSuffix(s, "-movflags +faststart -f mp4 out.tmp"))

	s = joined(BuildConcatArgs("list.txt", "out.tmp", "matroska"))
	assert.NotContains(t, s, "faststart")
}

func TestBuildGIFArgs(t *testing.T) {
	s := joined(BuildGIFArgs("in.mp4", "out.gif", 0, 480))
	assert.Contains(t, s, "fps=10,scale=480:-1:flags=lanczos,split")
	assert.Contains(t, s, "-loop 0 -f gif out.gif")
}
