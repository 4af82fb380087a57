// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package jobs

import "errors"

var (
	// ErrInvalidState is returned when an operation is not allowed in the job's current status.
	ErrInvalidState = errors.New("invalid job state")
	// ErrNoInput means input resolution produced nothing, e.g. the user
	// dismissed a picker. Jobs ending with it are Stopped, not Failed.
	ErrNoInput = errors.New("no input")
	// ErrCanceled is the error of a job canceled before it started.
	ErrCanceled = errors.New("job canceled before start")
)
