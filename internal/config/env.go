// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/capctl/internal/log"
)

// EnvPrefix prefixes every environment key capctl reads.
const EnvPrefix = "CAPCTL_"

// LookupFunc resolves one environment key.
type LookupFunc func(key string) (string, bool)

// envSource reads keys from the process environment first and the .env
// overlay second, logging where each value came from.
type envSource struct {
	dotenv map[string]string
	logger zerolog.Logger
}

func newEnvSource(dotenv map[string]string) envSource {
	return envSource{dotenv: dotenv, logger: log.WithComponent("config")}
}

func (e envSource) lookup(key string) (string, string, bool) {
	if v, ok := os.LookupEnv(key); ok {
		return v, "environment", true
	}
	if v, ok := e.dotenv[key]; ok {
		return v, "dotenv", true
	}
	return "", "", false
}

func isSensitive(key string) bool {
	k := strings.ToLower(key)
	return strings.Contains(k, "token") || strings.Contains(k, "password") || strings.Contains(k, "secret")
}

// String returns the value of key, or def when unset or empty.
func (e envSource) String(key, def string) string {
	v, src, ok := e.lookup(key)
	if !ok || v == "" {
		return def
	}
	ev := e.logger.Debug().Str("key", key).Str("source", src)
	if isSensitive(key) {
		ev.Bool("sensitive", true).Msg("using environment variable")
	} else {
		ev.Str("value", v).Msg("using environment variable")
	}
	return v
}

// Int parses key as an integer and falls back to def on errors.
func (e envSource) Int(key string, def int) int {
	v, src, ok := e.lookup(key)
	if !ok || v == "" {
		return def
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		e.logger.Warn().Str("key", key).Str("value", v).Int("default", def).Msg("invalid integer in environment variable, using default")
		return def
	}
	e.logger.Debug().Str("key", key).Int("value", i).Str("source", src).Msg("using environment variable")
	return i
}

// Float parses key as a float and falls back to def on errors.
func (e envSource) Float(key string, def float64) float64 {
	v, src, ok := e.lookup(key)
	if !ok || v == "" {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		e.logger.Warn().Str("key", key).Str("value", v).Float64("default", def).Msg("invalid number in environment variable, using default")
		return def
	}
	e.logger.Debug().Str("key", key).Float64("value", f).Str("source", src).Msg("using environment variable")
	return f
}

// Duration parses key in Go duration format ("5s").
func (e envSource) Duration(key string, def time.Duration) time.Duration {
	v, src, ok := e.lookup(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		e.logger.Warn().Str("key", key).Str("value", v).Dur("default", def).Msg("invalid duration in environment variable, using default")
		return def
	}
	e.logger.Debug().Str("key", key).Dur("value", d).Str("source", src).Msg("using environment variable")
	return d
}

// Bool accepts true/false, 1/0 and yes/no in any case.
func (e envSource) Bool(key string, def bool) bool {
	v, src, ok := e.lookup(key)
	if !ok || v == "" {
		return def
	}
	var b bool
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		b = true
	case "false", "0", "no":
		b = false
	default:
		e.logger.Warn().Str("key", key).Str("value", v).Bool("default", def).Msg("invalid boolean in environment variable, using default")
		return def
	}
	e.logger.Debug().Str("key", key).Bool("value", b).Str("source", src).Msg("using environment variable")
	return b
}
