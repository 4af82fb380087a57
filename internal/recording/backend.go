// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package recording

import "context"

// BackendKind names the family of a recording backend.
type BackendKind string

const (
	BackendNative   BackendKind = "native"
	BackendFallback BackendKind = "fallback"
)

// Backend records one contiguous segment. Implementations are black boxes to
// the Controller and are never shared between segments.
type Backend interface {
	// Start begins recording to opts.OutputPath.
	Start(ctx context.Context, opts Options) error
	// Stop ends the recording and returns the path of the written file.
	// An empty path means "the path passed to Start".
	Stop(ctx context.Context) (string, error)
}

// BackendEvents receives asynchronous notifications from a running backend.
type BackendEvents interface {
	BackendStatus(status Status)
	BackendError(err error)
}

// BackendFactory builds a fresh backend wired to events.
// A factory may fail with an error classified by IsCapabilityError.
type BackendFactory func(events BackendEvents) (Backend, error)
