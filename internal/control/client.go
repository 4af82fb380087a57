// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package control

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/capctl/internal/history"
	"github.com/ManuGH/capctl/internal/jobs"
	"github.com/ManuGH/capctl/internal/recording"
)

// APIError is a non-2xx response decoded from a problem body.
type APIError struct {
	StatusCode int
	Problem    Problem
}

func (e *APIError) Error() string {
	if e.Problem.Detail != "" {
		return fmt.Sprintf("control api: %d %s: %s", e.StatusCode, e.Problem.Code, e.Problem.Detail)
	}
	return fmt.Sprintf("control api: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Client talks to a running daemon.
type Client struct {
	base  string
	token string
	http  *http.Client
}

// NewClient returns a client for addr ("host:port" or a full URL).
func NewClient(addr, token string) *Client {
	base := addr
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		base:  strings.TrimRight(base, "/"),
		token: token,
		http:  &http.Client{Timeout: 0},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("control api %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&apiErr.Problem)
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Health calls /healthz.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.do(ctx, http.MethodGet, "/healthz", nil, &out)
	return out, err
}

// Ready calls /readyz. A not-ready daemon returns its checks with an APIError.
func (c *Client) Ready(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.do(ctx, http.MethodGet, "/readyz", nil, &out)
	return out, err
}

// Recording returns the controller state.
func (c *Client) Recording(ctx context.Context) (recording.State, error) {
	var out recording.State
	err := c.do(ctx, http.MethodGet, "/api/v1/recording", nil, &out)
	return out, err
}

// StartRecording starts a recording job and returns once it is recording.
func (c *Client) StartRecording(ctx context.Context, req StartRecordingRequest) (jobs.Snapshot, error) {
	var out jobs.Snapshot
	err := c.do(ctx, http.MethodPost, "/api/v1/record/start", req, &out)
	return out, err
}

// StopRecording asks the active recording job to stop.
func (c *Client) StopRecording(ctx context.Context) (recording.State, error) {
	return c.recordAction(ctx, "stop")
}

// AbortRecording discards the active recording.
func (c *Client) AbortRecording(ctx context.Context) (recording.State, error) {
	return c.recordAction(ctx, "abort")
}

// PauseRecording pauses the active recording.
func (c *Client) PauseRecording(ctx context.Context) (recording.State, error) {
	return c.recordAction(ctx, "pause")
}

// ResumeRecording resumes a paused recording.
func (c *Client) ResumeRecording(ctx context.Context) (recording.State, error) {
	return c.recordAction(ctx, "resume")
}

// TogglePauseResume pauses or resumes and returns the new status.
func (c *Client) TogglePauseResume(ctx context.Context) (recording.Status, error) {
	var out StatusResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/record/toggle", nil, &out)
	return out.Status, err
}

func (c *Client) recordAction(ctx context.Context, action string) (recording.State, error) {
	var out recording.State
	err := c.do(ctx, http.MethodPost, "/api/v1/record/"+action, nil, &out)
	return out, err
}

// RunWorkflow starts a workflow. With wait set it blocks until the job ends.
func (c *Client) RunWorkflow(ctx context.Context, id string, req RunRequest, wait bool) (jobs.Snapshot, error) {
	var out jobs.Snapshot
	path := "/api/v1/workflows/" + url.PathEscape(id) + "/run"
	if wait {
		path += "?wait=true"
	}
	err := c.do(ctx, http.MethodPost, path, req, &out)
	return out, err
}

// Workflows lists configured workflows.
func (c *Client) Workflows(ctx context.Context) (WorkflowsResponse, error) {
	var out WorkflowsResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/workflows", nil, &out)
	return out, err
}

// Jobs lists the jobs held by the daemon.
func (c *Client) Jobs(ctx context.Context) ([]jobs.Snapshot, error) {
	var out JobsResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/jobs", nil, &out)
	return out.Jobs, err
}

// Job returns one job.
func (c *Client) Job(ctx context.Context, id string) (jobs.Snapshot, error) {
	var out jobs.Snapshot
	err := c.do(ctx, http.MethodGet, "/api/v1/jobs/"+url.PathEscape(id), nil, &out)
	return out, err
}

// WaitJob polls a job until it reaches a terminal status.
func (c *Client) WaitJob(ctx context.Context, id string, interval time.Duration) (jobs.Snapshot, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		snap, err := c.Job(ctx, id)
		if err != nil || snap.Status.IsTerminal() {
			return snap, err
		}
		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-ticker.C:
		}
	}
}

// History lists the newest history items.
func (c *Client) History(ctx context.Context, limit int) ([]history.Item, error) {
	var out HistoryResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/history?limit="+strconv.Itoa(limit), nil, &out)
	return out.Items, err
}
