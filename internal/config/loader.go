// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Loader builds an AppConfig from defaults, a YAML file, a .env file and
// the environment.
type Loader struct {
	configPath string
	dotenvPath string
	version    string
	// ConsumedEnvKeys lists every key the last Load looked at.
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a loader. Empty paths skip the corresponding layer.
func NewLoader(configPath, dotenvPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		dotenvPath:      dotenvPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// ConfigPath returns the YAML file this loader reads.
func (l *Loader) ConfigPath() string { return l.configPath }

// Load applies defaults -> file -> .env -> environment, then validates.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	dotenv, err := l.readDotenv()
	if err != nil {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	l.mergeEnv(&cfg, newEnvSource(dotenv))

	resolvePaths(&cfg)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes YAML strictly onto cfg; keys absent from the file keep their defaults.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("%w: %s (only YAML supported)", ErrUnsupportedFormat, ext)
	}

	// #nosec G304 -- the config path is provided by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "not found in type") {
			return fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("config file contains multiple documents or trailing content")
	}
	return nil
}

func (l *Loader) readDotenv() (map[string]string, error) {
	if l.dotenvPath == "" {
		return nil, nil
	}
	m, err := godotenv.Read(l.dotenvPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return m, err
}

func (l *Loader) consume(key string) string {
	key = EnvPrefix + key
	l.ConsumedEnvKeys[key] = struct{}{}
	return key
}

// mergeEnv overrides cfg with CAPCTL_* variables.
func (l *Loader) mergeEnv(cfg *AppConfig, env envSource) {
	cfg.DataDir = env.String(l.consume("DATA"), cfg.DataDir)
	cfg.LogLevel = env.String(l.consume("LOG_LEVEL"), cfg.LogLevel)

	r := &cfg.Recording
	r.Dir = env.String(l.consume("RECORDINGS_DIR"), r.Dir)
	r.FFmpegBin = env.String(l.consume("FFMPEG_BIN"), r.FFmpegBin)
	r.Display = env.String(l.consume("DISPLAY"), r.Display)
	r.FPS = env.Int(l.consume("FPS"), r.FPS)
	r.Codec = env.String(l.consume("CODEC"), r.Codec)
	r.BitrateKbps = env.Int(l.consume("BITRATE_KBPS"), r.BitrateKbps)
	r.CaptureSystemAudio = env.Bool(l.consume("SYSTEM_AUDIO"), r.CaptureSystemAudio)
	r.CaptureMicrophone = env.Bool(l.consume("MICROPHONE"), r.CaptureMicrophone)
	r.MicrophoneDevice = env.String(l.consume("MICROPHONE_DEVICE"), r.MicrophoneDevice)
	r.ForceFallback = env.Bool(l.consume("FORCE_FALLBACK"), r.ForceFallback)
	r.UseNativeCapture = env.Bool(l.consume("NATIVE_CAPTURE"), r.UseNativeCapture)
	r.StopFlushTimeout = env.Duration(l.consume("STOP_FLUSH_TIMEOUT"), r.StopFlushTimeout)

	cfg.Jobs.RegistryCap = env.Int(l.consume("REGISTRY_CAP"), cfg.Jobs.RegistryCap)
	cfg.Jobs.HistoryEnabled = env.Bool(l.consume("HISTORY_ENABLED"), cfg.Jobs.HistoryEnabled)
	cfg.Jobs.SaveDir = env.String(l.consume("SAVE_DIR"), cfg.Jobs.SaveDir)

	cfg.History.Path = env.String(l.consume("HISTORY_PATH"), cfg.History.Path)
	cfg.History.BusyTimeout = env.Duration(l.consume("HISTORY_BUSY_TIMEOUT"), cfg.History.BusyTimeout)

	cfg.Upload.URL = env.String(l.consume("UPLOAD_URL"), cfg.Upload.URL)
	cfg.Upload.Timeout = env.Duration(l.consume("UPLOAD_TIMEOUT"), cfg.Upload.Timeout)
	cfg.Upload.RateLimit = env.Float(l.consume("UPLOAD_RPS"), cfg.Upload.RateLimit)

	cfg.Notify.Desktop = env.Bool(l.consume("NOTIFY_DESKTOP"), cfg.Notify.Desktop)

	cfg.Control.Listen = env.String(l.consume("LISTEN"), cfg.Control.Listen)
	cfg.Control.RateLimit = env.Int(l.consume("CONTROL_RATE_LIMIT"), cfg.Control.RateLimit)
	cfg.Control.Token = env.String(l.consume("CONTROL_TOKEN"), cfg.Control.Token)

	cfg.Telemetry.Enabled = env.Bool(l.consume("TELEMETRY_ENABLED"), cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = env.String(l.consume("TELEMETRY_EXPORTER"), cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = env.String(l.consume("TELEMETRY_ENDPOINT"), cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = env.Float(l.consume("TELEMETRY_SAMPLING_RATE"), cfg.Telemetry.SamplingRate)
}

// Dump renders cfg as YAML with secrets masked.
func Dump(cfg AppConfig) ([]byte, error) {
	masked := cfg
	if masked.Control.Token != "" {
		masked.Control.Token = "***"
	}
	if len(cfg.Upload.Headers) > 0 {
		masked.Upload.Headers = make(map[string]string, len(cfg.Upload.Headers))
		for k := range cfg.Upload.Headers {
			masked.Upload.Headers[k] = "***"
		}
	}
	return yaml.Marshal(masked)
}
