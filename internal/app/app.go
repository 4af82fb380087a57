// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package app is the composition root. It builds every component from one
// AppConfig and owns the process lifecycle of the daemon.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/capctl/internal/config"
	"github.com/ManuGH/capctl/internal/control"
	"github.com/ManuGH/capctl/internal/effects"
	"github.com/ManuGH/capctl/internal/health"
	"github.com/ManuGH/capctl/internal/history"
	"github.com/ManuGH/capctl/internal/jobs"
	"github.com/ManuGH/capctl/internal/recording"
	"github.com/ManuGH/capctl/internal/recording/ffmpeg"
	"github.com/ManuGH/capctl/internal/telemetry"
	"github.com/ManuGH/capctl/internal/workflow"
)

// ErrShutdown is returned by runners once the app is shutting down.
var ErrShutdown = errors.New("app is shutting down")

// Options customize how New wires the app. Zero values use the real system.
type Options struct {
	// Holder enables hot reload of workflows and defaults.
	Holder *config.ConfigHolder
	// Exec runs ffmpeg tools (concat, gif, screenshots).
	Exec ffmpeg.Exec
	// Clipboard overrides the system clipboard.
	Clipboard *effects.Clipboard
	// FilePicker is used by file uploads without an explicit path.
	FilePicker jobs.FilePicker
	// DisableTelemetry skips provider setup, e.g. for one-shot CLI runs.
	DisableTelemetry bool
	// Native is the OS capture backend. Defaults to recording.UnavailableNative.
	Native recording.BackendFactory

	Logger zerolog.Logger
}

// ShutdownHook releases one component.
type ShutdownHook func(ctx context.Context) error

type namedHook struct {
	name string
	hook ShutdownHook
}

// App holds the wired components of one capctl process.
type App struct {
	log    zerolog.Logger
	holder *config.ConfigHolder

	mu       sync.RWMutex
	cfg      config.AppConfig
	defaults workflow.Defaults

	// baseCtx is the single per-process context every job runs on.
	baseCtx    context.Context
	cancelBase context.CancelFunc

	recorder  *recording.Controller
	registry  *jobs.Registry
	catalog   *workflow.Catalog
	history   *history.Store
	telemetry *telemetry.Provider
	health    *health.Manager

	hooksMu  sync.Mutex
	hooks    []namedHook
	stopping bool
}

// Recorder returns the recording controller.
func (a *App) Recorder() *recording.Controller { return a.recorder }

// Registry returns the job registry.
func (a *App) Registry() *jobs.Registry { return a.registry }

// Catalog returns the workflow catalog.
func (a *App) Catalog() *workflow.Catalog { return a.catalog }

// History returns the history store, or nil when history is disabled.
func (a *App) History() *history.Store { return a.history }

// Config returns the config currently in effect.
func (a *App) Config() config.AppConfig {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

// RegisterShutdownHook adds a hook. Hooks run in reverse registration order.
func (a *App) RegisterShutdownHook(name string, hook ShutdownHook) {
	a.hooksMu.Lock()
	defer a.hooksMu.Unlock()
	a.hooks = append(a.hooks, namedHook{name: name, hook: hook})
	a.log.Debug().Str("hook", name).Msg("registered shutdown hook")
}

// Run serves the control API on ln (or the configured address when ln is
// nil) and blocks until ctx is cancelled or a component fails. The app is
// shut down before Run returns.
func (a *App) Run(ctx context.Context, ln net.Listener) error {
	if ln == nil {
		addr := a.Config().Control.Listen
		var err error
		ln, err = net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	if a.holder != nil {
		if err := a.holder.StartWatcher(gctx); err != nil {
			a.log.Warn().Err(err).Str("event", "config.watcher_start_failed").Msg("failed to start config watcher")
		}

		applyCh := make(chan config.AppConfig, 1)
		a.holder.RegisterListener(applyCh)
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case cfg := <-applyCh:
					a.apply(cfg)
				}
			}
		})

		g.Go(func() error {
			hup := make(chan os.Signal, 1)
			signal.Notify(hup, syscall.SIGHUP)
			defer signal.Stop(hup)
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-hup:
					a.log.Info().Str("event", "config.reload_signal").Msg("received SIGHUP, reloading config")
					if err := a.holder.Reload(context.Background()); err != nil {
						a.log.Warn().Err(err).Str("event", "config.reload_failed").Msg("config reload failed")
					}
				}
			}
		})
	}

	srv := a.controlServer()
	g.Go(func() error {
		return srv.Serve(gctx, ln)
	})

	err := g.Wait()
	if a.holder != nil {
		a.holder.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	if serr := a.Shutdown(shutdownCtx); serr != nil {
		err = errors.Join(err, serr)
	}
	return err
}

func (a *App) controlServer() *control.Server {
	cfg := a.Config()
	return control.NewServer(control.ServerConfig{
		Listen:    cfg.Control.Listen,
		RateLimit: cfg.Control.RateLimit,
		Token:     cfg.Control.Token,
		Version:   cfg.Version,
		Logger:    a.log,
	}, control.Deps{
		Recorder:  a.recorder,
		Runner:    a,
		Jobs:      a.registry,
		History:   historySource(a.history),
		Workflows: a.catalog,
		Health:    a.health,
	})
}

// historySource keeps a nil *Store from becoming a non-nil interface.
func historySource(s *history.Store) control.HistorySource {
	if s == nil {
		return nil
	}
	return s
}

// apply swaps the hot-reloadable parts of cfg in.
func (a *App) apply(cfg config.AppConfig) {
	a.mu.Lock()
	a.cfg = cfg
	a.defaults = defaultsFrom(cfg)
	a.mu.Unlock()
	a.catalog.Replace(cfg.Workflows)
	a.log.Info().Int("workflows", len(cfg.Workflows)).Msg("applied reloaded configuration")
}

// Shutdown stops running jobs, discards an orphaned recording and closes
// stores. It is safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	a.hooksMu.Lock()
	if a.stopping {
		a.hooksMu.Unlock()
		return nil
	}
	a.stopping = true
	hooks := append([]namedHook(nil), a.hooks...)
	a.hooksMu.Unlock()

	a.log.Info().Msg("shutting down")
	defer a.cancelBase()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		start := time.Now()
		if err := h.hook(ctx); err != nil {
			a.log.Error().Err(err).Str("hook", h.name).Dur("duration", time.Since(start)).Msg("shutdown hook failed")
			errs = append(errs, fmt.Errorf("hook %s: %w", h.name, err))
			continue
		}
		a.log.Debug().Str("hook", h.name).Dur("duration", time.Since(start)).Msg("shutdown hook completed")
	}
	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	a.log.Info().Msg("stopped cleanly")
	return nil
}

func (a *App) isStopping() bool {
	a.hooksMu.Lock()
	defer a.hooksMu.Unlock()
	return a.stopping
}

// WaitForShutdown returns a context cancelled by SIGINT or SIGTERM.
func WaitForShutdown() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
