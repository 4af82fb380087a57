// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	DefaultListen      = "127.0.0.1:7117"
	DefaultRegistryCap = 100
)

// DefaultDataDir is $XDG_DATA_HOME/capctl or ~/.local/share/capctl.
func DefaultDataDir() string {
	if x := os.Getenv("XDG_DATA_HOME"); x != "" {
		return filepath.Join(x, "capctl")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "capctl")
	}
	return filepath.Join(os.TempDir(), "capctl")
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		DataDir:  DefaultDataDir(),
		LogLevel: "info",
		Recording: RecordingConfig{
			FFmpegBin:        "ffmpeg",
			FPS:              30,
			Codec:            "h264",
			StopFlushTimeout: 2 * time.Second,
			GIFFPS:           15,
			GIFWidth:         640,
		},
		Jobs: JobsConfig{
			RegistryCap:    DefaultRegistryCap,
			HistoryEnabled: true,
		},
		History: HistoryConfig{
			BusyTimeout:   time.Second,
			RetryAttempts: 3,
			RetryBackoff:  100 * time.Millisecond,
		},
		Upload: UploadConfig{
			FieldName: "file",
			URLField:  "url",
			Timeout:   60 * time.Second,
			RateLimit: 1,
			Burst:     3,
		},
		Notify: NotifyConfig{
			Desktop:   true,
			RateLimit: 2,
			Burst:     5,
		},
		Control: ControlConfig{
			Listen:    DefaultListen,
			RateLimit: 120,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			ServiceName:  "capctl",
			SamplingRate: 1,
		},
	}
}

// resolvePaths fills directories derived from DataDir.
func resolvePaths(cfg *AppConfig) {
	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	if cfg.Recording.Dir == "" {
		cfg.Recording.Dir = filepath.Join(cfg.DataDir, "recordings")
	}
	if cfg.Jobs.SaveDir == "" {
		cfg.Jobs.SaveDir = filepath.Join(cfg.DataDir, "captures")
	}
	if cfg.Jobs.IndexDir == "" {
		cfg.Jobs.IndexDir = filepath.Join(cfg.DataDir, "indexes")
	}
	if cfg.History.Path == "" {
		cfg.History.Path = filepath.Join(cfg.DataDir, "history.db")
	}
}
