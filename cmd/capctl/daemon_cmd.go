// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"github.com/spf13/cobra"

	"github.com/ManuGH/capctl/internal/app"
	"github.com/ManuGH/capctl/internal/config"
	xglog "github.com/ManuGH/capctl/internal/log"
	"github.com/ManuGH/capctl/internal/version"
)

func newDaemonCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the capture daemon and its control API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configureLogging("info", cmd.ErrOrStderr())
			logger := xglog.WithComponent("daemon")

			cfg, loader, err := g.loadConfig()
			if err != nil {
				logger.Error().Err(err).Str("event", "config.load_failed").Str("config_path", loader.ConfigPath()).Msg("failed to load configuration")
				return err
			}
			configureLogging(cfg.LogLevel, cmd.ErrOrStderr())
			logger = xglog.WithComponent("daemon")
			if loader.ConfigPath() != "" {
				logger.Info().Str("event", "config.loaded").Str("path", loader.ConfigPath()).Msg("loaded configuration from file")
			} else {
				logger.Info().Str("event", "config.loaded").Str("source", "env+defaults").Msg("loaded configuration from environment and defaults")
			}

			ctx, stop := app.WaitForShutdown()
			defer stop()

			var holder *config.ConfigHolder
			if loader.ConfigPath() != "" {
				holder = config.NewConfigHolder(cfg, loader)
			}
			a, err := app.New(ctx, cfg, app.Options{Holder: holder, Logger: xglog.Base()})
			if err != nil {
				return err
			}
			logger.Info().Str("listen", cfg.Control.Listen).Str("version", version.Version).Msg("starting capctl daemon")
			return a.Run(ctx, nil)
		},
	}
}
