// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ManuGH/capctl/internal/config"
	"github.com/ManuGH/capctl/internal/effects"
	"github.com/ManuGH/capctl/internal/health"
	"github.com/ManuGH/capctl/internal/history"
	"github.com/ManuGH/capctl/internal/index"
	"github.com/ManuGH/capctl/internal/jobs"
	xglog "github.com/ManuGH/capctl/internal/log"
	"github.com/ManuGH/capctl/internal/notify"
	"github.com/ManuGH/capctl/internal/recording"
	"github.com/ManuGH/capctl/internal/recording/ffmpeg"
	"github.com/ManuGH/capctl/internal/telemetry"
	"github.com/ManuGH/capctl/internal/upload"
	"github.com/ManuGH/capctl/internal/workflow"
)

// New builds all components from cfg. Call Shutdown (or Run) to release them.
func New(ctx context.Context, cfg config.AppConfig, opts Options) (*App, error) {
	logger := opts.Logger
	baseCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a := &App{
		log:        logger.With().Str(xglog.FieldComponent, "app").Logger(),
		holder:     opts.Holder,
		cfg:        cfg,
		defaults:   defaultsFrom(cfg),
		baseCtx:    baseCtx,
		cancelBase: cancel,
		catalog:    workflow.NewCatalog(cfg.Workflows),
		health:     health.NewManager(cfg.Version),
	}

	fail := func(err error) (*App, error) {
		_ = a.Shutdown(context.Background())
		return nil, err
	}

	if !opts.DisableTelemetry {
		tp, err := telemetry.NewProvider(ctx, telemetry.Config{
			Enabled:        cfg.Telemetry.Enabled,
			ServiceName:    cfg.Telemetry.ServiceName,
			ServiceVersion: cfg.Version,
			ExporterType:   cfg.Telemetry.Exporter,
			Endpoint:       cfg.Telemetry.Endpoint,
			SamplingRate:   cfg.Telemetry.SamplingRate,
		})
		if err != nil {
			return fail(fmt.Errorf("telemetry: %w", err))
		}
		a.telemetry = tp
		a.RegisterShutdownHook("telemetry", tp.Shutdown)
	}

	var sink jobs.HistorySink
	if cfg.Jobs.HistoryEnabled {
		store, err := history.Open(cfg.History.Path, history.Config{BusyTimeout: cfg.History.BusyTimeout})
		if err != nil {
			return fail(err)
		}
		a.history = store
		sink = store
		a.health.RegisterChecker(health.PingChecker("history", store.Ping))
		a.RegisterShutdownHook("history", func(context.Context) error { return store.Close() })
	}

	notifier := buildNotifier(cfg.Notify, logger)

	exec := opts.Exec
	if exec == nil {
		exec = ffmpeg.DefaultExec{Logger: logger}
	}
	ffmpegBin := cfg.Recording.FFmpegBin
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	a.health.RegisterChecker(health.BinaryChecker("ffmpeg", ffmpegBin))
	a.health.RegisterChecker(health.DirChecker("recordings_dir", cfg.Recording.Dir))

	native := opts.Native
	if native == nil {
		native = recording.UnavailableNative()
	}
	platform := ffmpeg.DefaultPlatform()
	if cfg.Recording.Display != "" {
		platform.Display = cfg.Recording.Display
	}

	recorder, err := recording.NewController(recording.ControllerConfig{
		RecordingsDir: cfg.Recording.Dir,
		Native:        native,
		Fallback: ffmpeg.NewFactory(ffmpeg.BackendConfig{
			BinPath:  cfg.Recording.FFmpegBin,
			Platform: platform,
			Logger:   logger,
		}),
		Concat:        &ffmpeg.Concatenator{Bin: cfg.Recording.FFmpegBin, Exec: exec},
		ForceFallback: cfg.Recording.ForceFallback,
		FlushTimeout:  cfg.Recording.StopFlushTimeout,
		Logger:        logger,
	})
	if err != nil {
		return fail(err)
	}
	recorder.AddObserver(recordingObserver(a.baseCtx, notifier, logger))
	a.recorder = recorder
	a.RegisterShutdownHook("recording", func(ctx context.Context) error {
		if !recorder.IsRecording() {
			return nil
		}
		if err := recorder.AbortRecording(ctx); err != nil && !errors.Is(err, recording.ErrNotRecording) {
			return err
		}
		return nil
	})

	fx := effects.Set{
		SaveDir:   cfg.Jobs.SaveDir,
		Clipboard: opts.Clipboard,
		Notifier:  notifier,
		Logger:    logger,
	}
	if fx.Clipboard == nil {
		fx.Clipboard = &effects.Clipboard{}
	}
	if cfg.Upload.URL != "" {
		fx.Uploader = upload.NewClient(upload.Config{
			URL:       cfg.Upload.URL,
			FieldName: cfg.Upload.FieldName,
			URLField:  cfg.Upload.URLField,
			Headers:   cfg.Upload.Headers,
			Timeout:   cfg.Upload.Timeout,
			RateLimit: cfg.Upload.RateLimit,
			Burst:     cfg.Upload.Burst,
			UserAgent: "capctl/" + cfg.Version,
		}, logger)
	}

	a.registry = jobs.NewRegistry(cfg.Jobs.RegistryCap, &jobs.Deps{
		Capturer:   &ffmpeg.Grabber{Bin: cfg.Recording.FFmpegBin, Exec: exec, Platform: platform},
		FilePicker: opts.FilePicker,
		Indexer:    &index.Indexer{OutputDir: cfg.Jobs.IndexDir, Logger: logger},
		Recorder:   recorder,
		Converter: &ffmpeg.GIFConverter{
			Bin:   cfg.Recording.FFmpegBin,
			Exec:  exec,
			FPS:   cfg.Recording.GIFFPS,
			Width: cfg.Recording.GIFWidth,
		},
		AfterCapture: fx.AfterCapture(),
		AfterUpload:  fx.AfterUpload(),
		History:      sink,
		HistoryRetry: jobs.RetryPolicy{Attempts: cfg.History.RetryAttempts, Backoff: cfg.History.RetryBackoff},
		Notifier:     notifier,
		Logger:       logger,
	})
	a.RegisterShutdownHook("jobs", a.stopJobs)

	a.log.Info().
		Str("recordings_dir", cfg.Recording.Dir).
		Bool("history", cfg.Jobs.HistoryEnabled).
		Bool("upload", cfg.Upload.URL != "").
		Int("workflows", len(cfg.Workflows)).
		Msg("components ready")
	return a, nil
}

// stopJobs lets an active recording finalize before the registry stops the rest.
func (a *App) stopJobs(ctx context.Context) error {
	if a.recorder.IsRecording() {
		for _, j := range a.registry.List() {
			if j.Kind() != jobs.KindRecording || j.Status().IsTerminal() {
				continue
			}
			sid := j.Snapshot().SessionID
			if sid == "" {
				continue
			}
			a.log.Info().Str(xglog.FieldJobID, j.ID()).Str(xglog.FieldSessionID, sid).Msg("stopping active recording")
			a.recorder.SignalStopSession(sid)
			if err := j.Wait(ctx); err != nil {
				a.log.Warn().Err(err).Str(xglog.FieldJobID, j.ID()).Msg("recording job did not finish in time")
			}
		}
	}
	return a.registry.Close(ctx)
}

func buildNotifier(cfg config.NotifyConfig, logger zerolog.Logger) notify.Notifier {
	sinks := notify.Multi{notify.Log{Logger: logger.With().Str(xglog.FieldComponent, "notify").Logger()}}
	if cfg.Desktop {
		sinks = append(sinks, notify.Desktop{AppName: "capctl", Logger: logger})
	}
	return notify.NewLimited(sinks, cfg.RateLimit, cfg.Burst, logger)
}

func recordingObserver(ctx context.Context, n notify.Notifier, logger zerolog.Logger) recording.Observer {
	return recording.ObserverFuncs{
		OnStarted: func(ev recording.StartedEvent) {
			logger.Info().
				Str(xglog.FieldSessionID, ev.SessionID).
				Str(xglog.FieldBackend, string(ev.Backend)).
				Bool("fallback", ev.UsingFallback).
				Msg("recording started")
		},
		OnCompleted: func(ev recording.CompletedEvent) {
			n.Notify(ctx, notify.Message{
				Title: "Recording saved",
				Text:  ev.OutputPath,
				Level: notify.LevelInfo,
			})
		},
		OnError: func(sessionID string, err error) {
			logger.Warn().Err(err).Str(xglog.FieldSessionID, sessionID).Msg("recording backend error")
			n.Notify(ctx, notify.Message{
				Title: "Recording error",
				Text:  err.Error(),
				Level: notify.LevelError,
			})
		},
	}
}

func defaultsFrom(cfg config.AppConfig) workflow.Defaults {
	return workflow.Defaults{
		Encoder: recording.EncoderSettings{
			FPS:                cfg.Recording.FPS,
			Codec:              cfg.Recording.Codec,
			Bitrate:            cfg.Recording.BitrateKbps,
			CaptureSystemAudio: cfg.Recording.CaptureSystemAudio,
			CaptureMicrophone:  cfg.Recording.CaptureMicrophone,
			MicrophoneDevice:   cfg.Recording.MicrophoneDevice,
			ForceFallback:      cfg.Recording.ForceFallback,
		},
		UseNativeCapture: cfg.Recording.UseNativeCapture,
		IndexShowSizes:   true,
	}
}
