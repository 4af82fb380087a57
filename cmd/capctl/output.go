// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ManuGH/capctl/internal/history"
	"github.com/ManuGH/capctl/internal/jobs"
	"github.com/ManuGH/capctl/internal/recording"
	"github.com/ManuGH/capctl/internal/workflow"
)

const timeLayout = "2006-01-02 15:04:05"

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func printJobs(w io.Writer, snaps []jobs.Snapshot) {
	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Kind", "Workflow", "Status", "OK", "Created", "Output"})
	for _, s := range snaps {
		t.AppendRow(table.Row{
			shortID(s.ID),
			s.Kind,
			s.Workflow,
			s.Status,
			yesNo(s.Successful),
			formatTime(s.CreatedAt),
			output(s.Result),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "Total", len(snaps)})
	t.Render()
}

func printJob(w io.Writer, s jobs.Snapshot) {
	fmt.Fprintf(w, "job %s (%s) %s\n", s.ID, s.Kind, s.Status)
	if s.Result.FilePath != "" {
		fmt.Fprintf(w, "  file:    %s\n", s.Result.FilePath)
	}
	if s.Result.URL != "" {
		fmt.Fprintf(w, "  url:     %s\n", s.Result.URL)
	}
	for _, warn := range s.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warn)
	}
	if s.Error != "" {
		fmt.Fprintf(w, "  error:   %s\n", s.Error)
	}
}

func printHistory(w io.Writer, items []history.Item) {
	t := newTable(w)
	t.AppendHeader(table.Row{"When", "Type", "Name", "Path", "URL"})
	for _, it := range items {
		t.AppendRow(table.Row{formatTime(it.Timestamp), it.Type, it.Name, it.Path, it.URL})
	}
	t.Render()
}

func printWorkflows(w io.Writer, defs []workflow.Definition) {
	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Name", "Kind", "After capture", "After upload"})
	for _, d := range defs {
		t.AppendRow(table.Row{d.ID, d.DisplayName(), d.Kind, strings.Join(d.AfterCapture, ","), strings.Join(d.AfterUpload, ",")})
	}
	t.Render()
}

func printState(w io.Writer, st recording.State) {
	fmt.Fprintf(w, "status: %s\n", st.Status)
	if st.SessionID == "" {
		return
	}
	fmt.Fprintf(w, "session: %s\nbackend: %s\nsegments: %d\n", st.SessionID, st.Backend, st.Segments)
	if !st.StartedAt.IsZero() {
		fmt.Fprintf(w, "started: %s\n", formatTime(st.StartedAt))
	}
	if st.OutputPath != "" {
		fmt.Fprintf(w, "output: %s\n", st.OutputPath)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// output prefers the uploaded URL over the local file.
func output(r jobs.Result) string {
	switch {
	case r.URL != "":
		return r.URL
	case r.FilePath != "":
		return r.FilePath
	}
	return ""
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}
