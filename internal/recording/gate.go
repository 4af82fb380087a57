// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package recording

import (
	"context"
	"sync"
)

// StopReason tells the waiting job why its stop gate opened.
type StopReason string

const (
	StopRequested     StopReason = "requested"
	StopAborted       StopReason = "aborted"
	StopBackendFailed StopReason = "backend_failed"
)

// stopGate is a single-use gate. The first signal wins; later ones are no-ops.
type stopGate struct {
	once   sync.Once
	done   chan struct{}
	reason StopReason
}

func newStopGate() *stopGate {
	return &stopGate{done: make(chan struct{})}
}

func (g *stopGate) signal(reason StopReason) bool {
	fired := false
	g.once.Do(func() {
		g.reason = reason
		close(g.done)
		fired = true
	})
	return fired
}

func (g *stopGate) wait(ctx context.Context) (StopReason, error) {
	select {
	case <-g.done:
		return g.reason, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
