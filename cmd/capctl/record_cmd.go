// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ManuGH/capctl/internal/control"
	"github.com/ManuGH/capctl/internal/recording"
)

func newRecordCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Control the daemon's screen recording",
	}

	var req control.StartRecordingRequest
	start := &cobra.Command{
		Use:   "start",
		Short: "Start a recording job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := req.Overrides(); err != nil {
				return err
			}
			snap, err := g.client().StartRecording(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recording job %s: %s\n", snap.ID, snap.Status)
			return nil
		},
	}
	start.Flags().StringVarP(&req.Workflow, "workflow", "w", "", "recording workflow to use instead of the defaults")
	start.Flags().StringVarP(&req.Duration, "duration", "d", "", "stop automatically after this duration (e.g. 30s)")
	start.Flags().StringVarP(&req.Region, "region", "r", "", "record only x,y,width,height")

	actions := []struct {
		use, short string
		call       func(c *control.Client, ctx context.Context) (recording.State, error)
	}{
		{"stop", "Stop the recording and keep the output", (*control.Client).StopRecording},
		{"abort", "Stop the recording and discard the output", (*control.Client).AbortRecording},
		{"pause", "Pause the recording", (*control.Client).PauseRecording},
		{"resume", "Resume a paused recording", (*control.Client).ResumeRecording},
		{"status", "Show the recording state", (*control.Client).Recording},
	}
	cmd.AddCommand(start)
	for _, a := range actions {
		call := a.call
		cmd.AddCommand(&cobra.Command{
			Use:   a.use,
			Short: a.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				st, err := call(g.client(), cmd.Context())
				if err != nil {
					return err
				}
				printState(cmd.OutOrStdout(), st)
				return nil
			},
		})
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "toggle",
		Short: "Pause or resume the recording",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := g.client().TogglePauseResume(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), st)
			return nil
		},
	})
	return cmd
}
