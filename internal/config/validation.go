// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/ManuGH/capctl/internal/validate"
	"github.com/ManuGH/capctl/internal/workflow"
)

// Validate checks an effective configuration.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.NotEmpty("dataDir", cfg.DataDir)
	if _, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel)); err != nil {
		v.AddError("logLevel", "unknown log level", cfg.LogLevel)
	}

	r := cfg.Recording
	v.NotEmpty("recording.ffmpegBin", r.FFmpegBin)
	v.Range("recording.fps", r.FPS, 1, 240)
	v.NonNegative("recording.bitrateKbps", r.BitrateKbps)
	v.NonNegativeDuration("recording.stopFlushTimeout", r.StopFlushTimeout)
	v.Range("recording.gifFps", r.GIFFPS, 1, 50)
	v.NonNegative("recording.gifWidth", r.GIFWidth)

	v.NonNegative("jobs.registryCap", cfg.Jobs.RegistryCap)

	v.NonNegativeDuration("history.busyTimeout", cfg.History.BusyTimeout)
	v.Range("history.retryAttempts", cfg.History.RetryAttempts, 1, 10)
	v.NonNegativeDuration("history.retryBackoff", cfg.History.RetryBackoff)

	if cfg.Upload.URL != "" {
		v.URL("upload.url", cfg.Upload.URL, []string{"http", "https"})
	}
	v.NonNegativeDuration("upload.timeout", cfg.Upload.Timeout)
	if cfg.Upload.RateLimit < 0 {
		v.AddError("upload.rps", "must not be negative", cfg.Upload.RateLimit)
	}
	if cfg.Notify.RateLimit < 0 {
		v.AddError("notify.rps", "must not be negative", cfg.Notify.RateLimit)
	}

	if cfg.Control.Listen != "" {
		v.ListenAddr("control.listen", cfg.Control.Listen)
	}
	v.NonNegative("control.rateLimit", cfg.Control.RateLimit)

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
	}
	v.Fraction("telemetry.samplingRate", cfg.Telemetry.SamplingRate)

	if err := workflow.Validate(cfg.Workflows); err != nil {
		v.AddError("workflows", err.Error(), len(cfg.Workflows))
	}
	return v.Err()
}
