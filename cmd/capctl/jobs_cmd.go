// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ManuGH/capctl/internal/history"
)

func newJobsCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect the daemon's jobs",
	}

	var asJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent jobs, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snaps, err := g.client().Jobs(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), snaps)
			}
			printJobs(cmd.OutOrStdout(), snaps)
			return nil
		},
	}
	list.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := g.client().Job(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), snap)
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}

func newHistoryCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the capture history",
	}

	var (
		limit  int
		local  bool
		asJSON bool
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List the newest history items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				return errors.New("--limit must be positive")
			}
			var (
				items []history.Item
				err   error
			)
			if local {
				items, err = localHistory(cmd, g, limit)
			} else {
				items, err = g.client().History(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), items)
			}
			printHistory(cmd.OutOrStdout(), items)
			return nil
		},
	}
	f := list.Flags()
	f.IntVarP(&limit, "limit", "n", 20, "number of items")
	f.BoolVar(&local, "local", false, "read the history database directly")
	f.BoolVar(&asJSON, "json", false, "print JSON")

	cmd.AddCommand(list)
	return cmd
}

func localHistory(cmd *cobra.Command, g *globalFlags, limit int) ([]history.Item, error) {
	cfg, _, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := history.Open(cfg.History.Path, history.Config{BusyTimeout: cfg.History.BusyTimeout})
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer func() { _ = store.Close() }()
	return store.List(cmd.Context(), limit)
}
