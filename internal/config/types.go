// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"time"

	"github.com/ManuGH/capctl/internal/workflow"
)

// AppConfig is the effective configuration of a capctl process.
type AppConfig struct {
	DataDir  string `yaml:"dataDir"`
	LogLevel string `yaml:"logLevel"`

	Recording RecordingConfig       `yaml:"recording"`
	Jobs      JobsConfig            `yaml:"jobs"`
	History   HistoryConfig         `yaml:"history"`
	Upload    UploadConfig          `yaml:"upload"`
	Notify    NotifyConfig          `yaml:"notify"`
	Control   ControlConfig         `yaml:"control"`
	Telemetry TelemetryConfig       `yaml:"telemetry"`
	Workflows []workflow.Definition `yaml:"workflows"`

	// Version is set from the binary, never from files.
	Version string `yaml:"-"`
}

// RecordingConfig configures the recording controller and its ffmpeg tools.
type RecordingConfig struct {
	Dir                string        `yaml:"dir"`
	FFmpegBin          string        `yaml:"ffmpegBin"`
	Display            string        `yaml:"display"`
	FPS                int           `yaml:"fps"`
	Codec              string        `yaml:"codec"`
	BitrateKbps        int           `yaml:"bitrateKbps"`
	CaptureSystemAudio bool          `yaml:"captureSystemAudio"`
	CaptureMicrophone  bool          `yaml:"captureMicrophone"`
	MicrophoneDevice   string        `yaml:"microphoneDevice"`
	ForceFallback      bool          `yaml:"forceFallback"`
	UseNativeCapture   bool          `yaml:"useNativeCapture"`
	StopFlushTimeout   time.Duration `yaml:"stopFlushTimeout"`
	GIFFPS             int           `yaml:"gifFps"`
	GIFWidth           int           `yaml:"gifWidth"`
}

// JobsConfig configures the job registry and artifact output.
type JobsConfig struct {
	RegistryCap    int    `yaml:"registryCap"`
	HistoryEnabled bool   `yaml:"historyEnabled"`
	SaveDir        string `yaml:"saveDir"`
	IndexDir       string `yaml:"indexDir"`
}

// HistoryConfig configures the SQLite history store.
type HistoryConfig struct {
	Path          string        `yaml:"path"`
	BusyTimeout   time.Duration `yaml:"busyTimeout"`
	RetryAttempts int           `yaml:"retryAttempts"`
	RetryBackoff  time.Duration `yaml:"retryBackoff"`
}

// UploadConfig configures the HTTP upload destination. An empty URL disables uploads.
type UploadConfig struct {
	URL       string            `yaml:"url"`
	FieldName string            `yaml:"field"`
	URLField  string            `yaml:"urlField"`
	Headers   map[string]string `yaml:"headers"`
	Timeout   time.Duration     `yaml:"timeout"`
	RateLimit float64           `yaml:"rps"`
	Burst     int               `yaml:"burst"`
}

// NotifyConfig configures user notifications.
type NotifyConfig struct {
	Desktop   bool    `yaml:"desktop"`
	RateLimit float64 `yaml:"rps"`
	Burst     int     `yaml:"burst"`
}

// ControlConfig configures the local control API.
type ControlConfig struct {
	Listen string `yaml:"listen"`
	// RateLimit is requests per minute per client; 0 disables limiting.
	RateLimit int    `yaml:"rateLimit"`
	Token     string `yaml:"token"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	ServiceName  string  `yaml:"serviceName"`
	SamplingRate float64 `yaml:"samplingRate"`
}
