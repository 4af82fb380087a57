// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ffmpeg

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/ManuGH/capctl/internal/recording"
)

// Platform describes the capture devices available to ffmpeg on this host.
type Platform struct {
	GOOS    string
	Display string // X11 display, linux only

	// ScreenDevice is the avfoundation video device index on darwin.
	ScreenDevice string
	// SystemAudioDevice is the loopback source used for system audio.
	SystemAudioDevice string
}

// DefaultPlatform derives a Platform from the running process.
func DefaultPlatform() Platform {
	display := os.Getenv("DISPLAY")
	if display == "" {
		display = ":0.0"
	}
	return Platform{
		GOOS:              runtime.GOOS,
		Display:           display,
		ScreenDevice:      "1",
		SystemAudioDevice: "@DEFAULT_MONITOR@",
	}
}

func (p Platform) grabber() (string, error) {
	switch p.GOOS {
	case "linux", "freebsd", "openbsd", "netbsd":
		return "x11grab", nil
	case "windows":
		return "gdigrab", nil
	case "darwin":
		return "avfoundation", nil
	}
	return "", fmt.Errorf("%w: no screen grabber for %s", recording.ErrCapabilityUnavailable, p.GOOS)
}

// videoInput returns the input arguments plus an optional video filter needed
// to apply the capture area.
func (p Platform) videoInput(opts recording.Options, fps int) ([]string, string, error) {
	grabber, err := p.grabber()
	if err != nil {
		return nil, "", err
	}
	args := []string{"-f", grabber}
	if fps > 0 {
		args = append(args, "-framerate", strconv.Itoa(fps))
	}
	r := opts.Region
	size := fmt.Sprintf("%dx%d", r.Width, r.Height)

	switch grabber {
	case "x11grab":
		switch opts.Mode {
		case recording.ModeRegion:
			return append(args, "-video_size", size, "-i", fmt.Sprintf("%s+%d,%d", p.Display, r.X, r.Y)), "", nil
		case recording.ModeWindow:
			return append(args, "-window_id", opts.WindowID, "-i", p.Display), "", nil
		}
		return append(args, "-i", p.Display), "", nil

	case "gdigrab":
		switch opts.Mode {
		case recording.ModeRegion:
			return append(args,
				"-offset_x", strconv.Itoa(r.X), "-offset_y", strconv.Itoa(r.Y),
				"-video_size", size, "-i", "desktop"), "", nil
		case recording.ModeWindow:
			return append(args, "-i", "hwnd="+opts.WindowID), "", nil
		}
		return append(args, "-i", "desktop"), "", nil

	default: // avfoundation
		if opts.Mode == recording.ModeWindow {
			return nil, "", fmt.Errorf("%w: window capture on darwin", recording.ErrCapabilityUnavailable)
		}
		args = append(args, "-capture_cursor", "1", "-i", p.ScreenDevice+":none")
		if opts.Mode == recording.ModeRegion {
			return args, fmt.Sprintf("crop=%d:%d:%d:%d", r.Width, r.Height, r.X, r.Y), nil
		}
		return args, "", nil
	}
}

func (p Platform) audioInputs(enc recording.EncoderSettings) ([][]string, error) {
	var inputs [][]string
	switch p.GOOS {
	case "windows":
		if enc.CaptureSystemAudio {
			return nil, fmt.Errorf("%w: system audio loopback on windows", recording.ErrCapabilityUnavailable)
		}
		if enc.CaptureMicrophone {
			if enc.MicrophoneDevice == "" {
				return nil, fmt.Errorf("microphone device name is required on windows")
			}
			inputs = append(inputs, []string{"-f", "dshow", "-i", "audio=" + enc.MicrophoneDevice})
		}
	case "darwin":
		if enc.CaptureSystemAudio {
			return nil, fmt.Errorf("%w: system audio loopback on darwin", recording.ErrCapabilityUnavailable)
		}
		if enc.CaptureMicrophone {
			dev := enc.MicrophoneDevice
			if dev == "" {
				dev = "0"
			}
			inputs = append(inputs, []string{"-f", "avfoundation", "-i", "none:" + dev})
		}
	default:
		if enc.CaptureSystemAudio {
			inputs = append(inputs, []string{"-f", "pulse", "-i", p.SystemAudioDevice})
		}
		if enc.CaptureMicrophone {
			dev := enc.MicrophoneDevice
			if dev == "" {
				dev = "default"
			}
			inputs = append(inputs, []string{"-f", "pulse", "-i", dev})
		}
	}
	return inputs, nil
}

func videoCodecArgs(codec string, bitrate int) []string {
	var args []string
	switch strings.ToLower(codec) {
	case "", "h264", "libx264":
		args = []string{"-c:v", "libx264", "-preset", "veryfast", "-pix_fmt", "yuv420p"}
		if bitrate <= 0 {
			args = append(args, "-crf", "23")
		}
	case "h265", "hevc", "libx265":
		args = []string{"-c:v", "libx265", "-preset", "fast", "-pix_fmt", "yuv420p", "-tag:v", "hvc1"}
	case "vp8", "libvpx":
		args = []string{"-c:v", "libvpx", "-deadline", "realtime"}
	case "vp9", "libvpx-vp9":
		args = []string{"-c:v", "libvpx-vp9", "-deadline", "realtime", "-row-mt", "1"}
	case "av1", "libaom-av1":
		args = []string{"-c:v", "libaom-av1", "-cpu-used", "8"}
	default:
		args = []string{"-c:v", codec}
	}
	if bitrate > 0 {
		args = append(args, "-b:v", fmt.Sprintf("%dk", bitrate))
	}
	return args
}

func audioCodecArgs(output string) []string {
	if recording.FormatForPath(output) == "webm" {
		return []string{"-c:a", "libopus", "-b:a", "128k"}
	}
	return []string{"-c:a", "aac", "-b:a", "160k"}
}

// BuildRecordArgs returns the argument list recording opts to opts.OutputPath.
func BuildRecordArgs(p Platform, opts recording.Options) ([]string, error) {
	if opts.OutputPath == "" {
		return nil, fmt.Errorf("output path is required")
	}
	fps := opts.Encoder.FPS
	if fps <= 0 {
		fps = 30
	}

	video, filter, err := p.videoInput(opts, fps)
	if err != nil {
		return nil, err
	}
	audio, err := p.audioInputs(opts.Encoder)
	if err != nil {
		return nil, err
	}

	args := []string{"-hide_banner", "-nostats", "-loglevel", "warning", "-y"}
	args = append(args, video...)
	for _, in := range audio {
		args = append(args, in...)
	}

	switch len(audio) {
	case 0:
	case 1:
		args = append(args, "-map", "0:v", "-map", "1:a")
	default:
		args = append(args,
			"-filter_complex", fmt.Sprintf("%samix=inputs=%d:duration=longest[aout]", audioLabels(len(audio)), len(audio)),
			"-map", "0:v", "-map", "[aout]")
	}
	if filter != "" {
		args = append(args, "-vf", filter)
	}

	args = append(args, videoCodecArgs(opts.Encoder.Codec, opts.Encoder.Bitrate)...)
	if len(audio) > 0 {
		args = append(args, audioCodecArgs(opts.OutputPath)...)
	}
	args = append(args, opts.Encoder.ExtraArgs...)
	return append(args, opts.OutputPath), nil
}

func audioLabels(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "[%d:a]", i)
	}
	return b.String()
}

// BuildScreenshotArgs grabs a single frame as PNG on stdout.
func BuildScreenshotArgs(p Platform, opts recording.Options) ([]string, error) {
	video, filter, err := p.videoInput(opts, 0)
	if err != nil {
		return nil, err
	}
	args := []string{"-hide_banner", "-nostats", "-loglevel", "error"}
	args = append(args, video...)
	if filter != "" {
		args = append(args, "-vf", filter)
	}
	return append(args, "-frames:v", "1", "-f", "image2pipe", "-vcodec", "png", "pipe:1"), nil
}

// BuildConcatArgs joins the files listed in listPath without re-encoding.
func BuildConcatArgs(listPath, output, format string) []string {
	args := []string{
		"-hide_banner", "-nostats", "-loglevel", "error", "-y",
		"-f", "concat", "-safe", "0", "-i", listPath,
		"-c", "copy",
	}
	if format == "mp4" || format == "mov" {
		args = append(args, "-movflags", "+faststart")
	}
	if format != "" {
		args = append(args, "-f", format)
	}
	return append(args, output)
}

// BuildGIFArgs re-encodes input to an animated GIF with a generated palette.
func BuildGIFArgs(input, output string, fps, width int) []string {
	if fps <= 0 {
		fps = 10
	}
	scale := "scale=iw:-1"
	if width > 0 {
		scale = fmt.Sprintf("scale=%d:-1:flags=lanczos", width)
	}
	graph := fmt.Sprintf("fps=%d,%s,split[s0][s1];[s0]palettegen[p];[s1][p]paletteuse", fps, scale)
	return []string{
		"-hide_banner", "-nostats", "-loglevel", "error", "-y",
		"-i", input,
		"-vf", graph,
		"-loop", "0",
		"-f", "gif",
		output,
	}
}
