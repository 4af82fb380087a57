// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ManuGH/capctl/internal/app"
	"github.com/ManuGH/capctl/internal/control"
	"github.com/ManuGH/capctl/internal/jobs"
	xglog "github.com/ManuGH/capctl/internal/log"
)

const shutdownTimeout = 15 * time.Second

func newWorkflowCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Run and list configured workflows",
	}

	var (
		req    control.RunRequest
		local  bool
		wait   bool
		asJSON bool
	)
	run := &cobra.Command{
		Use:   "run <id>",
		Short: "Run a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := req.Overrides(); err != nil {
				return err
			}
			var (
				snap jobs.Snapshot
				err  error
			)
			if local {
				snap, err = runLocal(cmd.Context(), g, args[0], req)
			} else {
				snap, err = g.client().RunWorkflow(cmd.Context(), args[0], req, wait)
			}
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), snap)
			}
			printJob(cmd.OutOrStdout(), snap)
			if snap.Status == jobs.StatusFailed {
				return fmt.Errorf("workflow %s failed: %s", args[0], snap.Error)
			}
			return nil
		},
	}
	f := run.Flags()
	f.BoolVar(&local, "local", false, "run in this process instead of the daemon")
	f.BoolVar(&wait, "wait", true, "wait for the job to finish (daemon mode)")
	f.BoolVar(&asJSON, "json", false, "print the job as JSON")
	f.StringVarP(&req.Duration, "duration", "d", "", "recording duration override (e.g. 30s)")
	f.StringVarP(&req.Region, "region", "r", "", "capture region override x,y,width,height")
	f.StringVar(&req.FilePath, "file", "", "file to upload")
	f.StringVar(&req.Text, "text", "", "text to upload")
	f.StringVar(&req.IndexRoot, "root", "", "folder to index")

	list := &cobra.Command{
		Use:   "list",
		Short: "List configured workflows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := g.loadConfig()
			if err != nil {
				return err
			}
			printWorkflows(cmd.OutOrStdout(), cfg.Workflows)
			return nil
		},
	}

	cmd.AddCommand(run, list)
	return cmd
}

// runLocal builds the components in-process and runs one workflow. Ctrl-C
// stops the job; a recording keeps what was captured.
func runLocal(parent context.Context, g *globalFlags, id string, req control.RunRequest) (jobs.Snapshot, error) {
	cfg, _, err := g.loadConfig()
	if err != nil {
		return jobs.Snapshot{}, err
	}
	configureLogging(cfg.LogLevel, os.Stderr)

	ov, err := req.Overrides()
	if err != nil {
		return jobs.Snapshot{}, err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, app.Options{Logger: xglog.Base(), DisableTelemetry: true})
	if err != nil {
		return jobs.Snapshot{}, err
	}
	snap, runErr := a.RunLocal(ctx, id, ov)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(parent), shutdownTimeout)
	defer cancel()
	if err := a.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	return snap, runErr
}
