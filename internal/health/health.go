// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package health aggregates component checks for the daemon's liveness and
// readiness endpoints.
package health

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"
)

// Status represents the overall health/readiness status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult represents the result of a component health check
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Response is the aggregated result of all checks.
type Response struct {
	Status    Status                 `json:"status"`
	Ready     bool                   `json:"ready"`
	Version   string                 `json:"version,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Uptime    int64                  `json:"uptime_seconds"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker defines the interface for health checks
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Manager manages health and readiness checks
type Manager struct {
	version string
	started time.Time

	mu       sync.RWMutex
	checkers []Checker
}

// NewManager creates a new health check manager
func NewManager(version string) *Manager {
	return &Manager{version: version, started: time.Now()}
}

// RegisterChecker adds a health checker to the manager
func (m *Manager) RegisterChecker(c Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers = append(m.checkers, c)
}

// Health is the liveness view. Component checks only run when verbose is set;
// a live process always reports at least degraded.
func (m *Manager) Health(ctx context.Context, verbose bool) Response {
	resp := m.base()
	if !verbose {
		return resp
	}
	m.runChecks(ctx, &resp)
	return resp
}

// Ready runs every check. Any unhealthy component makes the daemon not ready.
func (m *Manager) Ready(ctx context.Context) Response {
	resp := m.base()
	m.runChecks(ctx, &resp)
	return resp
}

func (m *Manager) base() Response {
	now := time.Now()
	return Response{
		Status:    StatusHealthy,
		Ready:     true,
		Version:   m.version,
		Timestamp: now,
		Uptime:    int64(now.Sub(m.started).Seconds()),
	}
}

func (m *Manager) runChecks(ctx context.Context, resp *Response) {
	m.mu.RLock()
	checkers := append([]Checker(nil), m.checkers...)
	m.mu.RUnlock()
	if len(checkers) == 0 {
		return
	}

	resp.Checks = make(map[string]CheckResult, len(checkers))
	hasUnhealthy, hasDegraded := false, false
	for _, c := range checkers {
		res := c.Check(ctx)
		resp.Checks[c.Name()] = res
		switch res.Status {
		case StatusUnhealthy:
			hasUnhealthy = true
		case StatusDegraded:
			hasDegraded = true
		}
	}

	switch {
	case hasUnhealthy:
		resp.Status = StatusUnhealthy
		resp.Ready = false
	case hasDegraded:
		resp.Status = StatusDegraded
	}
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc struct {
	CheckName string
	Fn        func(ctx context.Context) CheckResult
}

func (c CheckerFunc) Name() string                          { return c.CheckName }
func (c CheckerFunc) Check(ctx context.Context) CheckResult { return c.Fn(ctx) }

// PingChecker reports unhealthy when ping fails, e.g. a database handle.
func PingChecker(name string, ping func(ctx context.Context) error) Checker {
	return CheckerFunc{CheckName: name, Fn: func(ctx context.Context) CheckResult {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := ping(ctx); err != nil {
			return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
		}
		return CheckResult{Status: StatusHealthy}
	}}
}

// BinaryChecker reports degraded when an external tool is missing. Jobs that
// need it fail, everything else keeps working.
func BinaryChecker(name, bin string) Checker {
	return CheckerFunc{CheckName: name, Fn: func(context.Context) CheckResult {
		path, err := exec.LookPath(bin)
		if err != nil {
			return CheckResult{Status: StatusDegraded, Message: bin + " not found", Error: err.Error()}
		}
		return CheckResult{Status: StatusHealthy, Message: path}
	}}
}

// DirChecker reports unhealthy when dir cannot be created or written.
func DirChecker(name, dir string) Checker {
	return CheckerFunc{CheckName: name, Fn: func(context.Context) CheckResult {
		if dir == "" {
			return CheckResult{Status: StatusHealthy, Message: "not configured (optional)"}
		}
		// #nosec G301
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
		}
		f, err := os.CreateTemp(dir, ".health-*")
		if err != nil {
			return CheckResult{Status: StatusUnhealthy, Error: fmt.Sprintf("not writable: %v", err)}
		}
		name := f.Name()
		_ = f.Close()
		_ = os.Remove(name)
		return CheckResult{Status: StatusHealthy, Message: filepath.Clean(dir)}
	}}
}
