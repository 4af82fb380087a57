// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package recording

import (
	"fmt"
	"strconv"
	"strings"
)

// CaptureMode selects what part of the desktop is recorded.
type CaptureMode string

const (
	ModeScreen CaptureMode = "screen"
	ModeWindow CaptureMode = "window"
	ModeRegion CaptureMode = "region"
)

// ParseCaptureMode accepts the CLI/config spellings of a capture mode.
func ParseCaptureMode(s string) (CaptureMode, error) {
	switch CaptureMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeScreen:
		return ModeScreen, nil
	case ModeWindow:
		return ModeWindow, nil
	case ModeRegion:
		return ModeRegion, nil
	}
	return "", fmt.Errorf("unknown capture mode %q", s)
}

// Region is a screen rectangle in pixels.
type Region struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Empty reports whether the region has no area.
func (r Region) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

func (r Region) String() string {
	return fmt.Sprintf("%d,%d,%d,%d", r.X, r.Y, r.Width, r.Height)
}

// ParseRegion parses "x,y,width,height".
func ParseRegion(s string) (Region, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 4 {
		return Region{}, fmt.Errorf("region %q: want x,y,width,height", s)
	}
	vals := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Region{}, fmt.Errorf("region %q: %w", s, err)
		}
		vals[i] = v
	}
	r := Region{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}
	if r.Empty() {
		return Region{}, fmt.Errorf("region %q: width and height must be positive", s)
	}
	return r, nil
}

// EncoderSettings configures the encoder used by a backend.
type EncoderSettings struct {
	FPS     int    `json:"fps" yaml:"fps"`
	Codec   string `json:"codec" yaml:"codec"`
	Bitrate int    `json:"bitrate_kbps" yaml:"bitrateKbps"`

	CaptureSystemAudio bool   `json:"system_audio" yaml:"systemAudio"`
	CaptureMicrophone  bool   `json:"microphone" yaml:"microphone"`
	MicrophoneDevice   string `json:"microphone_device,omitempty" yaml:"microphoneDevice,omitempty"`

	// ForceFallback skips the native backend for this recording.
	ForceFallback bool `json:"force_fallback" yaml:"forceFallback"`

	// ExtraArgs are appended to the fallback encoder command line.
	ExtraArgs []string `json:"extra_args,omitempty" yaml:"extraArgs,omitempty"`
}

// WantsAudio reports whether any audio source is requested.
func (e EncoderSettings) WantsAudio() bool {
	return e.CaptureSystemAudio || e.CaptureMicrophone
}

// Options describes one recording request. It is a value object: every
// segment works on its own Clone so changes never leak between segments.
type Options struct {
	Mode       CaptureMode     `json:"mode"`
	WindowID   string          `json:"window_id,omitempty"`
	Region     Region          `json:"region"`
	OutputPath string          `json:"output_path,omitempty"`
	Encoder    EncoderSettings `json:"encoder"`

	// UseNativeCapture is the caller's preference for the native backend.
	UseNativeCapture bool `json:"use_native_capture"`
}

// Clone returns a deep copy of o.
func (o Options) Clone() Options {
	c := o
	if o.Encoder.ExtraArgs != nil {
		c.Encoder.ExtraArgs = append([]string(nil), o.Encoder.ExtraArgs...)
	}
	return c
}

// Validate checks the options for internally inconsistent values.
func (o Options) Validate() error {
	switch o.Mode {
	case ModeScreen:
	case ModeWindow:
		if o.WindowID == "" {
			return fmt.Errorf("window mode requires a window id")
		}
	case ModeRegion:
		if o.Region.Empty() {
			return fmt.Errorf("region mode requires a non-empty region")
		}
	default:
		return fmt.Errorf("unknown capture mode %q", o.Mode)
	}
	if o.Encoder.FPS < 0 || o.Encoder.FPS > 240 {
		return fmt.Errorf("fps %d out of range 1..240", o.Encoder.FPS)
	}
	if o.Encoder.Bitrate < 0 {
		return fmt.Errorf("bitrate must not be negative")
	}
	return nil
}
