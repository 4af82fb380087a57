// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command capctl runs the capture daemon and drives it from the shell.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ManuGH/capctl/internal/config"
	"github.com/ManuGH/capctl/internal/control"
	xglog "github.com/ManuGH/capctl/internal/log"
	"github.com/ManuGH/capctl/internal/version"
)

// globalFlags are shared by all subcommands.
type globalFlags struct {
	configPath string
	envFile    string
	addr       string
	token      string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "capctl",
		Short:         "Screen capture jobs and recording control",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "path to config file (YAML); defaults to $CAPCTL_DATA/config.yaml when present")
	pf.StringVar(&g.envFile, "env-file", ".env", "dotenv file overlaid on the config")
	pf.StringVar(&g.addr, "addr", "", "control API address of the daemon (default: control.listen from config)")
	pf.StringVar(&g.token, "token", "", "control API bearer token (default: control.token from config)")

	root.AddCommand(
		newDaemonCmd(g),
		newRecordCmd(g),
		newWorkflowCmd(g),
		newJobsCmd(g),
		newHistoryCmd(g),
		newConfigCmd(g),
	)
	return root
}

// resolveConfigPath returns the explicit path or an auto-detected config.yaml.
func (g *globalFlags) resolveConfigPath() string {
	if p := strings.TrimSpace(g.configPath); p != "" {
		return p
	}
	dataDir := strings.TrimSpace(os.Getenv(config.EnvPrefix + "DATA"))
	if dataDir == "" {
		dataDir = config.DefaultDataDir()
	}
	auto := filepath.Join(dataDir, "config.yaml")
	if _, err := os.Stat(auto); err == nil {
		return auto
	}
	return ""
}

func (g *globalFlags) loader() *config.Loader {
	return config.NewLoader(g.resolveConfigPath(), g.envFile, version.Version)
}

func (g *globalFlags) loadConfig() (config.AppConfig, *config.Loader, error) {
	l := g.loader()
	cfg, err := l.Load()
	if err != nil {
		return cfg, l, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, l, nil
}

// client builds a control client. Flags win over the config; a config that
// fails to load falls back to the default listen address.
func (g *globalFlags) client() *control.Client {
	addr, token := g.addr, g.token
	if addr == "" || token == "" {
		cfg, _, err := g.loadConfig()
		if err != nil {
			cfg = config.Defaults()
		}
		if addr == "" {
			addr = cfg.Control.Listen
		}
		if token == "" {
			token = cfg.Control.Token
		}
	}
	if addr == "" {
		addr = config.DefaultListen
	}
	return control.NewClient(addr, token)
}

// configureLogging sets up the process logger for commands that run components.
func configureLogging(level string, out io.Writer) {
	xglog.Configure(xglog.Config{
		Level:   level,
		Output:  out,
		Service: "capctl",
		Version: version.Version,
	})
}
